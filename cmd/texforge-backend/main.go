package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"texforge/backend/internal/appdirs"
	"texforge/backend/internal/backend"
	"texforge/backend/internal/envfile"
	"texforge/backend/internal/envutil"
	"texforge/backend/internal/errinfo"
	"texforge/backend/internal/logging"
	"texforge/backend/internal/rpc"
)

func main() {
	envResult := envfile.Load()
	debug := envutil.Bool("TEXFORGE_DEBUG")
	dataDir, err := appdirs.DataDir()
	if err != nil {
		log.Fatalf("backend init failed: %v", err)
	}
	logSetup, logErr := logging.NewFileLogger(dataDir, debug)
	logger := logSetup.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("component", "backend")
	if logSetup.Enabled {
		logger.Info("backend.logging_enabled", "path", logSetup.Path)
	}
	if envResult.Loaded {
		logger.Debug("backend.env_loaded", "path", envResult.Path, "keys", envResult.Keys)
	}
	if envResult.Err != nil {
		logger.Warn("backend.env_load_failed", "path", envResult.Path, "error", envResult.Err.Error())
	}
	if logErr != nil {
		logger.Warn("backend.log_setup_failed", "error", logErr.Error())
	}
	if logSetup.Close != nil {
		defer logSetup.Close()
	}

	b, err := backend.New(backend.WithLogger(logger))
	if err != nil {
		logger.Error("backend.init_failed", "error", err.Error())
		log.Fatalf("backend init failed: %v", err)
	}
	server := rpc.NewServer(backend.APIVersion, os.Stdin, os.Stdout, logger)
	b.SetNotifier(server.Notify)

	register := func(method string, fn func(context.Context, json.RawMessage) (any, *errinfo.ErrorInfo)) {
		server.Register(method, func(ctx context.Context, params json.RawMessage) (any, *rpc.Error) {
			result, errInfo := fn(ctx, params)
			if errInfo != nil {
				msg := errInfo.ErrorCode
				if errInfo.Detail != "" {
					msg = errInfo.Detail
				}
				return nil, &rpc.Error{Message: msg, Data: errInfo}
			}
			return result, nil
		})
	}

	register("BackendGetInfo", b.BackendGetInfo)
	register("ProvidersGetStatus", b.ProvidersGetStatus)
	register("ProvidersSetApiKey", b.ProvidersSetApiKey)
	register("ProvidersClearApiKey", b.ProvidersClearApiKey)
	register("ProvidersValidate", b.ProvidersValidate)
	register("SettingsGet", b.SettingsGet)
	register("SettingsUpdate", b.SettingsUpdate)

	register("AIAutocomplete", b.AIAutocomplete)
	register("AIChat", b.AIChat)
	register("AIChatHistory", b.AIChatHistory)
	register("AIGenerateDocument", b.AIGenerateDocument)
	register("AIImproveContent", b.AIImproveContent)
	register("AIAgentEdit", b.AIAgentEdit)

	register("TokensGetUsage", b.TokensGetUsage)
	register("LatexDetectEngine", b.LatexDetectEngine)

	if err := server.Serve(context.Background()); err != nil {
		logger.Error("rpc.server_error", "error", err.Error())
		log.Fatalf("rpc server error: %v", err)
	}
}
