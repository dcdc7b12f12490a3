package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/auth"
	"github.com/cwrk-planet/tempvoice/internal/service"

	"github.com/spf13/cobra"
)

// serverURL turns http.addr into a base URL reachable from this host.
func serverURL(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

func newReconcileCmd(rt *runtime) *cobra.Command {
	var server, token string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Ask the running instance to sweep vanished and empty rooms",
		Long: "Voice occupancy is only known to a connected gateway session, so the sweep\n" +
			"runs inside the serving instance through its admin API.",
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if server == "" {
				server = serverURL(rt.cfg.HTTP.Addr)
			}
			if server == "" {
				return errors.New("no admin API address: set --server or http.addr")
			}
			if token == "" {
				signer, err := auth.NewSigner(rt.cfg.HTTP.JWTSecret, time.Minute)
				if err != nil {
					return err
				}
				if token, err = signer.Sign("cli", time.Now()); err != nil {
					return err
				}
			}

			req, err := http.NewRequestWithContext(c.Context(), http.MethodPost, strings.TrimRight(server, "/")+"/reconcile", nil)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)

			client := &http.Client{Timeout: 5 * time.Minute}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			defer resp.Body.Close()

			var body struct {
				Data  *service.SweepReport `json:"data"`
				Error *struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("reconcile: %s: %w", resp.Status, err)
			}
			if resp.StatusCode != http.StatusOK || body.Data == nil {
				msg := resp.Status
				if body.Error != nil {
					msg += ": " + body.Error.Message
				}
				return fmt.Errorf("reconcile: %s", msg)
			}
			return printJSON(c.OutOrStdout(), body.Data)
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "admin API base URL (default from http.addr)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (default: signed with http.jwtSecret)")
	return cmd
}

func newTokenCmd(rt *runtime) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an admin API token signed with http.jwtSecret",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if ttl <= 0 {
				ttl = rt.cfg.HTTP.TTL()
			}
			signer, err := auth.NewSigner(rt.cfg.HTTP.JWTSecret, ttl)
			if err != nil {
				return err
			}
			tok, err := signer.Sign(subject, time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime (default http.tokenTTL)")
	return cmd
}
