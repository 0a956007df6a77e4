package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "authgate",
	Short: "AuthGate CLI",
	Long:  "A CLI for operating an AuthGate authentication coordinator.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
		// Env var overrides are applied in newClient()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with -format=raw)")

	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(sessionCmd())
}

// --- health ---

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/sys/health")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

// --- check ---

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run an authentication check with synthetic credentials",
		Long: "Sends a request through the coordination pipeline using the given " +
			"credentials and prints the decision: which method was selected, " +
			"whether fallback fired, and the final outcome.",
		RunE: func(cmd *cobra.Command, args []string) error {
			bearer, _ := cmd.Flags().GetString("bearer")
			cookie, _ := cmd.Flags().GetString("cookie")
			userAgent, _ := cmd.Flags().GetString("user-agent")
			route, _ := cmd.Flags().GetString("route")

			client := newClient()
			headers := map[string]string{}
			if bearer != "" {
				headers["Authorization"] = "Bearer " + bearer
			}
			if cookie != "" {
				headers["Cookie"] = "authgate_session=" + cookie
			}
			if userAgent != "" {
				headers["User-Agent"] = userAgent
			}

			path := "/v1/auth/check"
			if route != "" {
				path += "?route=" + route
			}
			result, err := client.getWithHeaders(path, headers)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().String("bearer", "", "Bearer token to present")
	cmd.Flags().String("cookie", "", "Session cookie value to present")
	cmd.Flags().String("user-agent", "", "User-Agent header to present")
	cmd.Flags().String("route", "", "Route class for the check")
	return cmd
}

// --- stats ---

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show engine statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.get("/v1/stats")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

// --- events ---

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query security events",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			sourceIP, _ := cmd.Flags().GetString("source-ip")
			since, _ := cmd.Flags().GetString("since")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			q := make([]string, 0, 5)
			if kind != "" {
				q = append(q, "kind="+kind)
			}
			if sourceIP != "" {
				q = append(q, "source_ip="+sourceIP)
			}
			if since != "" {
				q = append(q, "since="+since)
			}
			if limit > 0 {
				q = append(q, "limit="+strconv.Itoa(limit))
			}
			if offset > 0 {
				q = append(q, "offset="+strconv.Itoa(offset))
			}

			path := "/v1/security/events"
			for i, param := range q {
				if i == 0 {
					path += "?" + param
				} else {
					path += "&" + param
				}
			}

			client := newClient()
			result, err := client.get(path)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().String("kind", "", "Filter by event kind (rate_limited, suspicious_pattern, fallback_triggered)")
	cmd.Flags().String("source-ip", "", "Filter by source IP")
	cmd.Flags().String("since", "", "Only events after this RFC3339 timestamp")
	cmd.Flags().Int("limit", 0, "Maximum events to return")
	cmd.Flags().Int("offset", 0, "Events to skip")
	return cmd
}

// --- session ---

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Manage server-side sessions"}

	createCmd := &cobra.Command{
		Use:   "create <user-id>",
		Short: "Create a session for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			result, err := client.post("/v1/sessions", map[string]any{"user_id": args[0]})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}

	revokeCmd := &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "Revoke a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if err := client.delete("/v1/sessions/" + args[0]); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Session revoked.")
			return nil
		},
	}

	cmd.AddCommand(createCmd, revokeCmd)
	return cmd
}
