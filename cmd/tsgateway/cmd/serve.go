package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/corey/tsgateway/internal/adapters/socket"
	"github.com/corey/tsgateway/internal/adapters/treesitter"
	"github.com/corey/tsgateway/internal/adapters/web"
)

var (
	flagSocket string
	flagHTTP   bool
	flagPort   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tokenization over a Unix socket",
	Long: `Run in the foreground and answer newline-delimited JSON requests
(tokens, highlight, parse, classify, health, shutdown) on a Unix socket.
The default socket path is derived from the project root.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running tsgateway server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := socket.NewClient(socketPath())
		if !client.Ping() {
			return fmt.Errorf("no server at %s", socketPath())
		}
		if err := client.Shutdown(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "server stopped")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{serveCmd, stopCmd} {
		c.Flags().StringVar(&flagSocket, "socket", "", "socket path (default /tmp/tsgateway-{hash}.sock)")
	}
	serveCmd.Flags().BoolVar(&flagHTTP, "http", false, "also serve the JSON API and preview page on localhost")
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "HTTP port (default derived from the project root)")
}

func socketPath() string {
	if flagSocket != "" {
		return flagSocket
	}
	return socket.SocketPath(projectRoot())
}

func runServe(cmd *cobra.Command, args []string) error {
	gw, err := newGateway(cmd, nil)
	if err != nil {
		return err
	}
	defer gw.Close()

	srv := socket.NewServer(gw, socketPath(), *zerolog.Ctx(cmd.Context()))
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	fmt.Fprintf(cmd.OutOrStdout(), "serving on %s\n", srv.Addr())

	if flagHTTP {
		port := flagPort
		if port == 0 {
			port = web.DefaultPort(projectRoot())
		}
		httpSrv := web.NewServer(gw, languages(gw.Registry), *zerolog.Ctx(cmd.Context()))
		if err := httpSrv.Start(port); err != nil {
			return err
		}
		defer httpSrv.Stop()
		fmt.Fprintf(cmd.OutOrStdout(), "preview at %s\n", httpSrv.URL())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-srv.ShutdownCh():
	case <-cmd.Context().Done():
	}
	return nil
}

func languages(reg *treesitter.Registry) []web.Language {
	var langs []web.Language
	for _, id := range reg.IDs() {
		g, _ := reg.Resolve(id)
		langs = append(langs, web.Language{ID: id, Name: g.Name, Extensions: g.Extensions})
	}
	return langs
}
