package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lohnkonto/lohnkonto-client/internal/api"
	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	inthttp "github.com/lohnkonto/lohnkonto-client/internal/http"
)

// newServiceClient builds an API client from the effective configuration.
func newServiceClient() (*api.Client, error) {
	cfg, err := loadConfig("")
	if err != nil {
		return nil, err
	}
	httpClient, err := inthttp.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return api.NewClient(cfg.APIBaseURL, httpClient, GetLogger()), nil
}

// newHealthCmd creates the 'health' command.
func newHealthCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the processing service is ready",
		Long: `Query the service health endpoint. The command fails when the service
is unreachable or reports that its spreadsheet template is missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newServiceClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(GetContext(), constants.HealthCheckTimeout)
			defer cancel()

			status, err := client.Health(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(status); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Service:  %s\n", client.BaseURL())
				fmt.Fprintf(out, "Status:   %s\n", status.Status)
				fmt.Fprintf(out, "Template: %t", status.TemplateExists)
				if status.TemplatePath != "" {
					fmt.Fprintf(out, " (%s)", status.TemplatePath)
				}
				fmt.Fprintln(out)
			}

			if !status.Healthy() {
				return fmt.Errorf("service is not ready to process documents")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw health response")

	return cmd
}

// newInfoCmd creates the 'info' command.
func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the processing service version and endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newServiceClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(GetContext(), constants.HealthCheckTimeout)
			defer cancel()

			info, err := client.Info(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service: %s\n", client.BaseURL())
			if info.Message != "" {
				fmt.Fprintf(out, "Message: %s\n", info.Message)
			}
			fmt.Fprintf(out, "Version: %s\n", info.Version)

			names := make([]string, 0, len(info.Endpoints))
			for name := range info.Endpoints {
				names = append(names, name)
			}
			sort.Strings(names)
			if len(names) > 0 {
				fmt.Fprintln(out, "Endpoints:")
				for _, name := range names {
					fmt.Fprintf(out, "  %-10s %s\n", name, info.Endpoints[name])
				}
			}
			return nil
		},
	}
}
