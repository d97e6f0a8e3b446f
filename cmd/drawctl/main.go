package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/navmaint/drawboard/internal/apiclient"
	"github.com/navmaint/drawboard/internal/auth"
	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/drawing"
	"github.com/navmaint/drawboard/internal/export"
)

type options struct {
	server string
	token  string
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "drawctl",
		Short:         "Inspect and export drawings on a drawboard server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("DRAWBOARD_URL", "http://localhost:8080"), "server base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("DRAWBOARD_TOKEN"), "bearer token")

	root.AddCommand(
		newTokenCmd(),
		newShowCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newBackgroundCmd(opts),
		newApplyCmd(opts),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (o *options) client() *apiclient.Client {
	return apiclient.New(o.server, apiclient.StaticToken(o.token))
}

func drawingPath(id string, parts ...string) string {
	p := "/api/drawings/" + id
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func newTokenCmd() *cobra.Command {
	var (
		secret  string
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the server secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.NewService(secret).IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	cmd.Flags().StringVar(&subject, "subject", "drawctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}

func newShowCmd(opts *options) *cobra.Command {
	var state bool
	cmd := &cobra.Command{
		Use:   "show <drawingId>",
		Short: "Print a drawing's scene (or its interaction state) as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := drawingPath(args[0])
			if state {
				endpoint = drawingPath(args[0], "state")
			}
			var raw json.RawMessage
			if err := opts.client().Get(cmd.Context(), endpoint, &raw); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().BoolVar(&state, "state", false, "show interaction and viewport state instead of the scene")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <drawingId> <svg|png|pdf>",
		Short: "Download a drawing export",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(args[1])
			if err != nil {
				return err
			}
			data, name, err := opts.client().Download(cmd.Context(), drawingPath(args[0], "export", string(format)))
			if err != nil {
				return err
			}
			if name == "" {
				name = format.FileName()
			}
			path := filepath.Join(dir, filepath.Base(name))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "o", ".", "output directory")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <drawingId> <scene.json>",
		Short: "Replace a drawing's scene with a saved one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			// Validate locally before sending
			if _, err := document.Unmarshal(data); err != nil {
				return fmt.Errorf("invalid scene: %w", err)
			}
			var raw json.RawMessage
			if err := opts.client().Put(cmd.Context(), drawingPath(args[0]), json.RawMessage(data), &raw); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func newBackgroundCmd(opts *options) *cobra.Command {
	var clearBG bool
	cmd := &cobra.Command{
		Use:   "background <drawingId> [image]",
		Short: "Upload or clear a drawing's background image",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			endpoint := drawingPath(args[0], "background")
			var raw json.RawMessage

			if clearBG {
				if err := c.Del(cmd.Context(), endpoint, &raw); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), raw)
			}
			if len(args) < 2 {
				return fmt.Errorf("image path required unless --clear is set")
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			var imp struct {
				ID     string `json:"id"`
				Width  int    `json:"width"`
				Height int    `json:"height"`
				Type   string `json:"type"`
			}
			if err := c.Upload(cmd.Context(), endpoint, filepath.Base(args[1]), f, &imp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %s %dx%d\n", imp.ID, imp.Type, imp.Width, imp.Height)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearBG, "clear", false, "remove the background instead")
	return cmd
}

func newApplyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <drawingId> <command-json>",
		Short: `Apply one interaction command, e.g. '{"type":"zoom.in"}'`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c drawing.Command
			if err := json.Unmarshal([]byte(args[1]), &c); err != nil {
				return fmt.Errorf("invalid command: %w", err)
			}
			var raw json.RawMessage
			if err := opts.client().Post(cmd.Context(), drawingPath(args[0], "commands"), c, &raw); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = w.Write(raw)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

