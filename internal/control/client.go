package control

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Client speaks the control socket's line protocol from
// cmd/rrdcachectl: connect, send one command, read lines until the
// server's terminating OK or an ERR line, disconnect.
type Client struct {
	sockPath string
	timeout  time.Duration
}

// NewClient builds a Client for the control socket at sockPath.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath, timeout: 5 * time.Second}
}

func (c *Client) send(command string) ([]string, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect control socket %s: %w", c.sockPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := fmt.Fprintln(conn, command); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		text := scanner.Text()
		switch {
		case text == "OK":
			return lines, nil
		case strings.HasPrefix(text, "ERR "):
			return nil, errors.New(strings.TrimPrefix(text, "ERR "))
		default:
			lines = append(lines, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return lines, fmt.Errorf("connection closed before OK/ERR terminator")
}

// Flush drives FLUSH <identifier>, or FLUSHALL when identifier is empty.
func (c *Client) Flush(identifier string) error {
	command := "FLUSHALL"
	if identifier != "" {
		command = "FLUSH " + identifier
	}
	_, err := c.send(command)
	return err
}

// List returns the filenames currently sitting in the dispatch queue.
func (c *Client) List() ([]string, error) {
	return c.send("LIST")
}

// Stats returns the raw "key=value ..." line the daemon reports for
// its live queue depth and cache entry count.
func (c *Client) Stats() (string, error) {
	lines, err := c.send("STATS")
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
