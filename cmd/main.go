/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command eni-capacity runs a single capacity evaluation and exits. It is
// meant for cron-style triggers (a Kubernetes CronJob, a scheduled task) and
// for local debugging against a real cluster.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/mehdiazizian/eni-capacity-agent/internal/config"
	"github.com/mehdiazizian/eni-capacity-agent/internal/setup"
)

var setupLog = ctrl.Log.WithName("setup")

func main() {
	cfg := config.Load()
	cfg.BindFlags(flag.CommandLine)

	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	if cfg.Debug {
		opts.Level = zapcore.DebugLevel
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = log.IntoContext(ctx, ctrl.Log)

	setupLog.Info("Starting capacity evaluation",
		"cluster", cfg.ClusterName,
		"hostSource", cfg.HostSource,
		"sink", cfg.Sink,
		"interfacesPerHost", cfg.InterfacesPerHost)

	h, err := setup.NewHandler(ctx, cfg, setup.Clients{})
	if err != nil {
		setupLog.Error(err, "unable to set up handler")
		os.Exit(1)
	}

	result, err := h.Handle(ctx, nil)
	if err != nil {
		setupLog.Error(err, "capacity evaluation failed")
		os.Exit(1)
	}

	setupLog.Info("Capacity evaluation finished", "result", result)
}
