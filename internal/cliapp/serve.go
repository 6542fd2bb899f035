// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cliapp

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"mitigated.example.com/engine/internal/config"
	"mitigated.example.com/engine/internal/dashboard"
	"mitigated.example.com/engine/internal/eventmodel"
	_ "mitigated.example.com/engine/internal/filters"
	"mitigated.example.com/engine/internal/hspl"
	"mitigated.example.com/engine/internal/ingest"
	"mitigated.example.com/engine/internal/landscape"
	"mitigated.example.com/engine/internal/logging"
	"mitigated.example.com/engine/internal/metrics"
	"mitigated.example.com/engine/internal/mspl"
	_ "mitigated.example.com/engine/internal/mspl/actions"
	"mitigated.example.com/engine/internal/pipeline"
	"mitigated.example.com/engine/internal/plugin"
	"mitigated.example.com/engine/internal/recipe"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the refinement engine: watch for attacks, emit HSPL/MSPL recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe wires the ingestion adapters, the per-attack pipeline, and
// the metrics/dashboard sinks together, then blocks until SIGINT/SIGTERM
// (§5 "Cancellation").
func runServe(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	land, err := landscape.Load(cfg.LandscapeFile)
	if err != nil {
		return fmt.Errorf("landscape: %w", err)
	}

	lib, err := recipe.Load(cfg.RecipesDirectory)
	if err != nil {
		return fmt.Errorf("recipes: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PIDFile != "" {
		if err := writePIDFile(cfg.PIDFile); err != nil {
			return fmt.Errorf("pid file: %w", err)
		}
		defer removePIDFile(cfg.PIDFile)
	}

	if cfg.Syslog != nil && cfg.Syslog.Enabled {
		w, err := logging.NewSyslogWriter(logging.SyslogConfig{
			Enabled:  cfg.Syslog.Enabled,
			Host:     cfg.Syslog.Host,
			Port:     cfg.Syslog.Port,
			Protocol: cfg.Syslog.Protocol,
			Tag:      cfg.Syslog.Tag,
			Facility: cfg.Syslog.Facility,
		})
		if err != nil {
			return fmt.Errorf("syslog: %w", err)
		}
		log.SetOutput(w)
	}

	m := metrics.New()
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, m)
	}

	var broker *dashboard.Broker
	if cfg.DashboardHost != "" {
		broker = dashboard.NewBroker(dashboard.Config{
			Addr:       fmt.Sprintf("%s:%d", cfg.DashboardHost, cfg.DashboardPort),
			Password:   string(cfg.DashboardPassword),
			DB:         cfg.DashboardDB,
			Topic:      cfg.DashboardTopic,
			Attempts:   cfg.DashboardAttempts,
			RetryDelay: cfg.DashboardRetryDelay,
			Timeout:    cfg.DashboardTimeout,
		})
		defer broker.Close()
	}

	optimizerCfg := hspl.Config{
		MergeInclusions:   cfg.HSPLMergeInclusions,
		MergeWithAnyPorts: cfg.HSPLMergeWithAnyPorts,
		MergeWithSubnets:  cfg.HSPLMergeWithSubnets,
		MergingThreshold:  cfg.HSPLMergingThreshold,
		MergingMinBits:    cfg.HSPLMergingMinBits,
		MergingMaxBits:    cfg.HSPLMergingMaxBits,
	}

	actionCfg := mspl.ActionConfig{}
	if cfg.Limit != nil {
		actionCfg.LimitMaxConnections = cfg.Limit.MaxConnections
		actionCfg.LimitRateLimit = cfg.Limit.RateLimit
	}

	var resolver mspl.Resolver
	if cfg.VNSFO != nil && cfg.VNSFO.Enabled {
		resolver = newVNSFOResolver(*cfg.VNSFO)
	}

	p := pipeline.New(pipeline.Config{
		Registry:   plugin.Default,
		Recipes:    lib,
		Landscape:  land,
		Optimizer:  hspl.NewOptimizer(optimizerCfg),
		Rand:       rand.New(rand.NewSource(1)),
		Resolver:   resolver,
		ActionCfg:  actionCfg,
		Broker:     broker,
		DashTopic:  cfg.DashboardTopic,
		DashOnHSPL: cfg.DashboardContent == "hspl" || cfg.DashboardContent == "both",
		DashOnMSPL: cfg.DashboardContent == "mspl" || cfg.DashboardContent == "both",
		Metrics:    m,
	})

	sink := newSink(cfg)
	defer sink.Close()

	emit := func(attack *eventmodel.Attack) {
		result := p.Run(ctx, attack)
		sink.Record(result)
		if !result.Success {
			log.Printf("[SERVE] attack (%s,%v) did not complete: %+v", attack.Type, attack.Severity, result.Stages)
		}
	}

	var wg sync.WaitGroup
	if cfg.InputMethod == "file" || cfg.InputMethod == "both" {
		fa, err := ingest.NewFileAdapter(cfg.WatchedDirectory, plugin.Default, emit)
		if err != nil {
			return fmt.Errorf("file adapter: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fa.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[SERVE] file adapter stopped: %v", err)
			}
		}()
	}

	var ma *ingest.MessageAdapter
	if cfg.InputMethod == "message" || cfg.InputMethod == "both" {
		acc := ingest.NewAccumulator()
		ma = ingest.NewMessageAdapter(ingest.MessageAdapterConfig{
			Addr:        fmt.Sprintf("%s:%d", cfg.ServerAddress, cfg.ServerPort),
			Password:    string(cfg.ServerPassword),
			DB:          cfg.ServerDB,
			Topic:       cfg.ServerTopic,
			RetryDelay:  cfg.ServerRetryDelay,
			MaxAttempts: cfg.ServerMaxAttempts,
		}, plugin.Default, acc, emit)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ma.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[SERVE] message adapter stopped: %v", err)
			}
		}()
	}

	<-ctx.Done()
	if ma != nil {
		ma.Close()
	}
	wg.Wait()
	return nil
}

// writePIDFile records the running process id, mirroring the PID-file
// start/stop contract of the daemon this engine replaces (§9 Design
// Note). Refuses to overwrite a PID file left by a still-running
// process so two `serve` instances don't silently share one PID file.
func writePIDFile(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && processRunning(pid) {
			return fmt.Errorf("pid file %s: process %d is still running", path, pid)
		}
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removePIDFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[SERVE] cannot remove pid file %s: %v", path, err)
	}
}

func processRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[SERVE] metrics server stopped: %v", err)
	}
}

// vnsfoRunningResponse is the shape of a GET /vnsf/running response: a
// list of currently-running VNF instances, each naming the vnfd it was
// instantiated from and the network service it backs.
type vnsfoRunningResponse struct {
	VNSF []struct {
		VnfdID string `json:"vnfd_id"`
		NSName string `json:"ns_name"`
		VnfrID string `json:"vnfr_id"`
	} `json:"vnsf"`
}

// newVNSFOResolver builds the optional orchestrator-lookup hook (§4.4
// step 2, §9 Design Note). It queries /vnsf/running for the set of
// currently-running VNF instances, keeps the ones instantiated from the
// candidate node's vnfd, and returns the running instance whose network
// service name contains the attack type (case-insensitive substring),
// mirroring the vnfd_id+attack_name lookup the query hook is grounded
// on. No running instance matching both criteria resolves to an error,
// which the caller falls back from to the chosen node id.
func newVNSFOResolver(cfg config.VNSFOConfig) mspl.Resolver {
	client := &http.Client{Timeout: cfg.Timeout}
	return func(ctx context.Context, nodeID, attackType string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/vnsf/running", nil)
		if err != nil {
			return "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("vnsfo: /vnsf/running: status %d", resp.StatusCode)
		}

		var running vnsfoRunningResponse
		if err := json.NewDecoder(resp.Body).Decode(&running); err != nil {
			return "", fmt.Errorf("vnsfo: decode /vnsf/running response: %w", err)
		}

		for _, vnsf := range running.VNSF {
			if vnsf.VnfdID != nodeID {
				continue
			}
			if strings.Contains(strings.ToLower(vnsf.NSName), strings.ToLower(attackType)) {
				return vnsf.VnfrID, nil
			}
		}
		return "", fmt.Errorf("vnsfo: no running instance of %s matching attack type %q", nodeID, attackType)
	}
}

// sink writes the sidecar HSPL/MSPL/dashboard dump files named in §6,
// when configured. Each is a best-effort append; a write failure is
// logged, not fatal.
type sink struct {
	mu       sync.Mutex
	hsplFile *os.File
	msplFile *os.File
	dashFile *os.File
}

func newSink(cfg *config.Config) *sink {
	s := &sink{}
	s.hsplFile = openAppend(cfg.HSPLsFile)
	s.msplFile = openAppend(cfg.MSPLsFile)
	s.dashFile = openAppend(cfg.DashboardFile)
	return s
}

func openAppend(path string) *os.File {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[SERVE] cannot open sidecar file %s: %v", path, err)
		return nil
	}
	return f
}

// Record appends the successful traversal's HSPL/MSPL XML to their
// configured sidecar files.
func (s *sink) Record(result *pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result.OptimizedSet != nil && s.hsplFile != nil {
		writeXML(s.hsplFile, result.OptimizedSet)
	}
	if result.MSPL != nil && s.msplFile != nil {
		writeXML(s.msplFile, result.MSPL)
	}
	if s.dashFile != nil {
		s.recordDashboard(result)
	}
}

// recordDashboard mirrors whatever this attack sent to the dashboard
// broker into the dashboard sidecar file, so a deployment without a
// broker configured still has a record of what would have been sent.
func (s *sink) recordDashboard(result *pipeline.Result) {
	for _, sr := range result.Stages {
		if sr.Stage != pipeline.StageDashboardEgress || sr.Skipped {
			continue
		}
		line := fmt.Sprintf("attack=%s/%v delivered=%t\n", result.Attack.Type, result.Attack.Severity, sr.Success)
		if _, err := s.dashFile.WriteString(line); err != nil {
			log.Printf("[SERVE] dashboard sidecar write failed: %v", err)
		}
	}
}

func writeXML(f *os.File, v any) {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("[SERVE] sidecar marshal failed: %v", err)
		return
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("[SERVE] sidecar write failed: %v", err)
	}
}

func (s *sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range []*os.File{s.hsplFile, s.msplFile, s.dashFile} {
		if f != nil {
			f.Close()
		}
	}
}
