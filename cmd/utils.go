package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/djyunz/SBSample/internal/config"
)

var errNoInstance = errors.New("no running instance found (start one with 'sbsample' or 'sbsample server start')")

func portFilePath() string {
	return filepath.Join(config.GetStateDir(), "port")
}

// readActivePort reads the port from the port file, 0 when there is none
func readActivePort() int {
	data, err := os.ReadFile(portFilePath())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || port <= 0 {
		return 0
	}
	return port
}

// saveActivePort writes the port so that 'add' and browser helpers can find us
func saveActivePort(port int) error {
	if err := os.MkdirAll(filepath.Dir(portFilePath()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(portFilePath(), []byte(strconv.Itoa(port)), 0o644)
}

func removeActivePort() {
	_ = os.Remove(portFilePath())
}

// resolveBaseURL returns the base URL of the running instance's HTTP API.
// host overrides the port file when set, e.g. "127.0.0.1:8080".
func resolveBaseURL(host string) (string, error) {
	if host != "" {
		if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
			return strings.TrimRight(host, "/"), nil
		}
		return "http://" + host, nil
	}
	port := readActivePort()
	if port == 0 {
		return "", errNoInstance
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port), nil
}

// readURLsFromFile reads URLs from a file, one per line.
// Blank lines and lines starting with # are skipped.
func readURLsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	scanner := bufio.NewScanner(file)

	// Long signed URLs overflow the default 64KB line limit
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxCapacity)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return urls, nil
}

// collectURLs merges positional arguments with the batch file, if any
func collectURLs(args []string, batchFile string) ([]string, error) {
	urls := append([]string(nil), args...)
	if batchFile == "" {
		return urls, nil
	}
	fileURLs, err := readURLsFromFile(batchFile)
	if err != nil {
		return urls, err
	}
	return append(urls, fileURLs...), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
