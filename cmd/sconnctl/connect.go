package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sconn-client/sconn"
	"github.com/sconn-client/sconn/internal/metrics"
)

func connectCmd() *cobra.Command {
	var (
		bundlePath       string
		addr             string
		target           string
		flag             string
		persistName      string
		packageType      string
		metricsAddr      string
		metricsNamespace string
		metricsSubsystem string
		metricsLabels    map[string]string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a server and report session state until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(connectArgs{
				bundlePath:       bundlePath,
				addr:             addr,
				target:           target,
				flag:             flag,
				persistName:      persistName,
				packageType:      packageType,
				metricsAddr:      metricsAddr,
				metricsNamespace: metricsNamespace,
				metricsSubsystem: metricsSubsystem,
				metricsLabels:    metricsLabels,
			})
		},
	}

	cmd.Flags().StringVarP(&bundlePath, "bundle", "b", "", "Path to the compiled sproto schema bundle (required)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Transport address, e.g. tcp host:port or ws://host:port/path (required)")
	cmd.Flags().StringVar(&target, "target", "", "Server-side routing target sent in the newconnect handshake")
	cmd.Flags().StringVar(&flag, "flag", "", "Opaque flag sent in the newconnect handshake")
	cmd.Flags().StringVar(&persistName, "persist", "", "Resume-state name; omit to always newconnect")
	cmd.Flags().StringVar(&packageType, "package-type", "", "Schema type name for the package header (default base.package)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090; omit to disable")
	cmd.Flags().StringVar(&metricsNamespace, "metrics-namespace", "sconn", "Prometheus metric namespace")
	cmd.Flags().StringVar(&metricsSubsystem, "metrics-subsystem", "", "Prometheus metric subsystem")
	cmd.Flags().StringToStringVar(&metricsLabels, "metrics-label", nil, "Constant Prometheus label as key=value; repeatable")
	_ = cmd.MarkFlagRequired("bundle")
	_ = cmd.MarkFlagRequired("addr")

	return cmd
}

type connectArgs struct {
	bundlePath       string
	addr             string
	target           string
	flag             string
	persistName      string
	packageType      string
	metricsAddr      string
	metricsNamespace string
	metricsSubsystem string
	metricsLabels    map[string]string
}

func runConnect(a connectArgs) error {
	bundle, err := os.ReadFile(a.bundlePath)
	if err != nil {
		return fmt.Errorf("reading bundle: %w", err)
	}

	var opts []sconn.Option
	if a.persistName != "" {
		opts = append(opts, sconn.WithPersistName(a.persistName))
	}
	if a.packageType != "" {
		opts = append(opts, sconn.WithPackageType(a.packageType))
	}
	opts = append(opts, sconn.WithReconnectCallback(func(ok bool) {
		fmt.Printf("reconnect settled: ok=%v\n", ok)
	}))

	if a.metricsAddr != "" {
		registry := prometheus.NewRegistry()
		m := metrics.New(
			metrics.WithRegistry(registry),
			metrics.WithNamespace(a.metricsNamespace),
			metrics.WithSubsystem(a.metricsSubsystem),
			metrics.WithConstLabels(prometheus.Labels(a.metricsLabels)),
		)
		opts = append(opts, sconn.WithMetrics(m))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: a.metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "metrics server: %s\n", err)
			}
		}()
		defer server.Close()
	}

	session, err := sconn.NewSession(bundle, opts...)
	if err != nil {
		return fmt.Errorf("building session: %w", err)
	}

	if err := session.Connect(a.addr, 10*time.Second, a.target, a.flag); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer session.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	lastState := session.State()
	fmt.Printf("state: %s\n", lastState)
	for {
		select {
		case <-ctx.Done():
			fmt.Println("interrupted, closing")
			return nil
		case <-ticker.C:
			res := session.Update()
			if !res.OK {
				return fmt.Errorf("session update: %w", res.Err)
			}
			if cur := session.State(); cur != lastState {
				lastState = cur
				fmt.Printf("state: %s\n", lastState)
			}
		}
	}
}
