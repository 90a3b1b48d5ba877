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

// Command lambda is the AWS Lambda entry point. Each event (typically an
// EventBridge rule on ECS API calls or a schedule) triggers one capacity
// evaluation. Configuration is read from the function's environment once,
// at cold start.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/mehdiazizian/eni-capacity-agent/internal/config"
	"github.com/mehdiazizian/eni-capacity-agent/internal/handler"
	"github.com/mehdiazizian/eni-capacity-agent/internal/setup"
)

func main() {
	cfg := config.Load()

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	ctrl.SetLogger(zap.New(zap.Level(level), zap.JSONEncoder()))
	setupLog := ctrl.Log.WithName("setup")

	h, err := setup.NewHandler(context.Background(), cfg, setup.Clients{})
	if err != nil {
		setupLog.Error(err, "unable to set up handler")
		os.Exit(1)
	}

	lambda.Start(withRequestLogger(h))
}

// withRequestLogger attaches a logger carrying the Lambda request ID.
func withRequestLogger(h *handler.Handler) func(context.Context, json.RawMessage) (string, error) {
	return func(ctx context.Context, event json.RawMessage) (string, error) {
		logger := ctrl.Log
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			logger = logger.WithValues("requestID", lc.AwsRequestID)
		}
		logger.V(1).Info("Received event", "event", string(event))
		return h.Handle(log.IntoContext(ctx, logger), event)
	}
}
