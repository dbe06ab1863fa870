package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/shepherd/internal/config"
)

// adminClient talks to a running daemon's operator API on localhost.
type adminClient struct {
	baseURL string
	client  *http.Client
}

func newAdminClient(port int) *adminClient {
	return &adminClient{
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *adminClient) do(method, path string) (int, []byte, error) {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func newRunNowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run-now",
		Short: "Trigger the daily campaign run immediately",
		Long:  "Asks the running daemon to execute the birthday, visitor, and event campaigns now, ignoring the daily anchor.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunNow(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shepherd.yaml", "path to Shepherd config file")
	return cmd
}

func runRunNow(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client := newAdminClient(cfg.Admin.Port)
	code, body, err := client.do(http.MethodPost, "/run-now")
	if err != nil {
		return fmt.Errorf("run-now: %w", err)
	}
	if code == http.StatusConflict {
		return fmt.Errorf("run-now: a run is already in progress")
	}
	if code != http.StatusOK {
		return fmt.Errorf("run-now: daemon returned %d: %s", code, strings.TrimSpace(string(body)))
	}

	fmt.Fprintln(out, "Daily run executed.")
	return printStatusBody(out, body)
}

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show scheduler status of the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shepherd.yaml", "path to Shepherd config file")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client := newAdminClient(cfg.Admin.Port)
	code, body, err := client.do(http.MethodGet, "/status")
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("status: daemon returned %d: %s", code, strings.TrimSpace(string(body)))
	}
	return printStatusBody(out, body)
}

// printStatusBody pretty-prints the daemon's JSON status response.
func printStatusBody(out io.Writer, body []byte) error {
	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Fprintln(out, strings.TrimSpace(string(body)))
		return nil
	}
	formatted, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(formatted))
	return nil
}
