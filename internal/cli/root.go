// Package cli implements the adminctl command line client.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-tenant-admin/client"
	"github.com/jrsteele09/go-tenant-admin/internal/config"
	"github.com/jrsteele09/go-tenant-admin/internal/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries the persistent flags and the streams of one command run
type app struct {
	configPath  string
	server      string
	credentials string
	logLevel    string
	debug       bool

	in     *bufio.Reader
	out    io.Writer
	logger zerolog.Logger
	cfg    config.ClientConfig
}

// NewRootCmd creates the root cobra command for adminctl.
func NewRootCmd() *cobra.Command {
	return newRootCmd(os.Stdin, os.Stdout, os.Stderr)
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: bufio.NewReader(in), out: out}

	root := &cobra.Command{
		Use:   "adminctl",
		Short: "Tenant admin command line client",
		Long:  "adminctl logs in to the tenant admin backend, keeps the session token fresh and lists tenants.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClientConfig(a.configPath)
			if err != nil {
				return err
			}
			if a.server != "" {
				cfg.Server = a.server
			}
			if a.credentials != "" {
				cfg.CredentialsPath = a.credentials
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			if a.debug {
				cfg.LogLevel = "debug"
			}
			a.cfg = cfg
			a.logger = logging.New(errOut, cfg.LogLevel, "DEV")
			return nil
		},
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	defaultConfig, _ := config.DefaultClientConfigPath()
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfig, "Client config file")
	root.PersistentFlags().StringVar(&a.server, "server", "", "Backend URL (or TENANT_ADMIN_SERVER env)")
	root.PersistentFlags().StringVar(&a.credentials, "credentials", "", "File the session token is kept in")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newWhoamiCmd(a),
		newLogoutCmd(a),
		newWatchCmd(a),
		newTenantsCmd(a),
	)
	return root
}

// withClient builds a session client, restores the persisted session and
// closes the client once fn returns
func (a *app) withClient(ctx context.Context, fn func(c *client.Client) error) error {
	c, err := client.New(client.OptionsFromConfig(a.cfg, a.logger))
	if err != nil {
		return err
	}
	defer c.Close()
	c.Start(ctx)
	return fn(c)
}

// prompt reads one line from the input when value is empty
func (a *app) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if _, err := io.WriteString(a.out, label+": "); err != nil {
		return "", err
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Wrapf(err, "read %s", strings.ToLower(label))
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.Errorf("%s cannot be empty", strings.ToLower(label))
	}
	return line, nil
}
