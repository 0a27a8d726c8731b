package materialize

import (
	"context"
	"os/exec"
	"regexp"
	"time"

	"go.uber.org/zap"

	"atelier/domain/scaffold"
)

// probeTimeout bounds how long a version probe may stall project
// creation metadata. The probe never blocks the node itself.
const probeTimeout = 2 * time.Second

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// probeCommands maps languages to the command that reports the
// installed runtime version.
var probeCommands = map[scaffold.Language][]string{
	scaffold.LanguagePython:     {"python3", "--version"},
	scaffold.LanguageGo:         {"go", "version"},
	scaffold.LanguageSwift:      {"swift", "--version"},
	scaffold.LanguageJavaScript: {"node", "--version"},
	scaffold.LanguageTypeScript: {"node", "--version"},
	scaffold.LanguageRust:       {"rustc", "--version"},
}

// ExecProbe detects installed runtime versions by running the
// language's version command. Misses are cached-free and benign: the
// caller falls back to the catalog default.
type ExecProbe struct {
	logger *zap.Logger
}

// NewExecProbe creates a probe
func NewExecProbe(logger *zap.Logger) *ExecProbe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecProbe{logger: logger}
}

// Version reports the installed version for a language, false when
// the runtime is absent or unparseable.
func (p *ExecProbe) Version(ctx context.Context, language scaffold.Language) (string, bool) {
	args, ok := probeCommands[language]
	if !ok {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, args[0], args[1:]...).Output()
	if err != nil {
		p.logger.Debug("runtime probe missed",
			zap.String("language", string(language)),
			zap.Error(err))
		return "", false
	}
	version := versionPattern.FindString(string(out))
	if version == "" {
		return "", false
	}
	return version, true
}

// NopProbe always misses, pinning catalog defaults into manifests.
type NopProbe struct{}

// Version implements ports.RuntimeProbe
func (NopProbe) Version(ctx context.Context, language scaffold.Language) (string, bool) {
	return "", false
}
