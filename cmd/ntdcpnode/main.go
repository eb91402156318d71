// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ntdcpnode is the ambient application shell around the ntdcp
// core: it loads a node's configuration, attaches its physical
// interfaces, and drives Node.Serve on a cron schedule. None of this is
// part of the core networking stack (spec.md §1 explicitly keeps the CLI
// out of scope); it exists only to make the core runnable.
package main

import (
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"code.hybscloud.com/ntdcp"
	"code.hybscloud.com/ntdcp/cmd/ntdcpnode/config"
	"code.hybscloud.com/ntdcp/physnet"
)

func main() {
	configPath := flag.String("config", "/etc/ntdcp/node.yaml", "path to node config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.Logging.Level))
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	met := ntdcp.NewMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(met)

	node := ntdcp.NewNode(
		ntdcp.Address(cfg.Node.Address),
		ntdcp.WithNodeLogger(log),
		ntdcp.WithNodeMetrics(met),
	)

	pumps, err := attachPhysical(node, cfg, log)
	if err != nil {
		log.Error("attaching physical interfaces", "error", err)
		os.Exit(1)
	}

	for _, l := range cfg.Listen {
		switch l.Kind {
		case "acceptor":
			port := l.Port
			if _, err := node.NewAcceptor(port, func(s *ntdcp.Socket) {
				log.Info("accepted connection", "local_port", port, "remote_addr", s.RemoteAddr())
			}); err != nil {
				log.Error("registering acceptor", "port", port, "error", err)
				os.Exit(1)
			}
		case "datagram":
			if _, err := node.NewDatagramReceiver(l.Port); err != nil {
				log.Error("registering datagram receiver", "port", l.Port, "error", err)
				os.Exit(1)
			}
		}
	}

	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			log.Info("metrics server listening", "addr", cfg.Metrics.Listen, "path", cfg.Metrics.Path)
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Error("metrics server exited", "error", err)
			}
		}()
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelDebug))))
	schedule := cfg.Schedule.Cron
	if _, err := c.AddFunc(schedule, func() {
		now := time.Now()
		for _, p := range pumps {
			if err := p.Pump(now); err != nil {
				log.Warn("physical interface pump failed", "error", err)
			}
		}
		node.Serve()
	}); err != nil {
		log.Error("scheduling serve loop", "schedule", schedule, "error", err)
		os.Exit(1)
	}

	log.Info("node starting", "address", node.Address(), "schedule", schedule)
	c.Run()
}

// attachPhysical dials or listens for every configured physical
// interface, attaches it to the node's network layer, and returns the
// subset that need periodic Pump calls (the stream-backed adapters).
func attachPhysical(node *ntdcp.Node, cfg *config.NodeConfig, log *slog.Logger) ([]*physnet.StreamPhysical, error) {
	var pumps []*physnet.StreamPhysical
	for _, p := range cfg.Physical {
		var conn net.Conn
		var err error
		network := p.Kind
		if network == "" {
			network = "tcp"
		}
		if p.Dial != "" {
			conn, err = net.Dial(network, p.Dial)
		} else if p.Listen != "" {
			var ln net.Listener
			ln, err = net.Listen(network, p.Listen)
			if err == nil {
				conn, err = ln.Accept()
			}
		}
		if err != nil {
			return nil, err
		}

		netOpts := physnet.TCPOptions()
		if p.HalfDuplex {
			netOpts = physnet.HalfDuplexSerialOptions(p.TxTime, p.TxToRxTime)
		}

		sp := physnet.NewStreamPhysical(conn, node.SystemDriver(), netOpts)
		node.AddPhysical(sp)
		pumps = append(pumps, sp)
		log.Info("attached physical interface", "name", p.Name, "kind", network)
	}
	return pumps, nil
}
