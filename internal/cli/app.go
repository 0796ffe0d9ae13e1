package cli

import (
	"github.com/pratik-mahalle/costpilot/internal/actions"
	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/detect"
	"github.com/pratik-mahalle/costpilot/internal/domain/remediation"
	"github.com/pratik-mahalle/costpilot/internal/notify"
	"github.com/pratik-mahalle/costpilot/internal/orchestrator"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
	"github.com/pratik-mahalle/costpilot/internal/providers"
	"github.com/pratik-mahalle/costpilot/internal/rag"
	"github.com/pratik-mahalle/costpilot/internal/worker"
)

// buildRunner assembles the full detection and remediation pipeline from
// configuration.
func buildRunner(cfg *config.Config, log *logger.Logger, dryRun bool, onReport func(*remediation.Report)) *worker.Runner {
	source := providers.NewMultiSource(cfg, log)
	engine := detect.NewEngine(source, cfg.Detection, log)

	orch := orchestrator.New(
		rag.New(cfg.Retrieval, log),
		actions.NewGenerator(cfg.OpenAI, log),
		actions.NewGitHubSink(cfg.GitHub, log),
		notify.NewSlackNotifier(cfg.Slack, log),
		cfg.Remediation,
		log,
	)

	return worker.NewRunner(engine, orch, dryRun, onReport, log)
}
