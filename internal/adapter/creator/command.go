package creator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/cwygoda/feedhandler/internal/config"
	"github.com/cwygoda/feedhandler/internal/domain"
)

// CommandCreator runs an external command to create the resource for a doc.
// The trimmed stdout of a successful run is the resource location.
type CommandCreator struct {
	cfg     config.CreatorConfig
	pattern *regexp.Regexp
}

// NewCommandCreator creates a creator from config.
func NewCommandCreator(cc config.CreatorConfig) (*CommandCreator, error) {
	re, err := regexp.Compile(cc.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", cc.Pattern, err)
	}
	return &CommandCreator{cfg: cc, pattern: re}, nil
}

func (c *CommandCreator) Name() string {
	return c.cfg.Name
}

func (c *CommandCreator) Match(source string) bool {
	return c.pattern.MatchString(source)
}

func (c *CommandCreator) Create(ctx context.Context, doc domain.Doc) (domain.Resource, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	args := make([]string, len(c.cfg.Args))
	for i, arg := range c.cfg.Args {
		args[i] = expand(arg, doc)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cfg.Command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return domain.Resource{}, c.classify(doc, err, strings.TrimSpace(stderr.String()))
	}

	return domain.Resource{
		APIID:    doc.APIID,
		Location: strings.TrimSpace(stdout.String()),
	}, nil
}

// classify maps configured exit codes onto creation error kinds.
func (c *CommandCreator) classify(doc domain.Doc, err error, stderr string) error {
	cause := fmt.Errorf("%s failed: %w: %s", c.cfg.Command, err, stderr)

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return cause
	}
	switch code := exitErr.ExitCode(); {
	case c.cfg.DuplicateExitCode != 0 && code == c.cfg.DuplicateExitCode:
		return domain.DuplicateResource(doc.APIID, cause)
	case c.cfg.SpecialExitCode != 0 && code == c.cfg.SpecialExitCode:
		return domain.SpecialCondition(doc.APIID, cause)
	}
	return cause
}

func expand(arg string, doc domain.Doc) string {
	return strings.NewReplacer(
		"{api_id}", strconv.FormatInt(doc.APIID, 10),
		"{type}", doc.Type,
		"{source}", doc.Source,
	).Replace(arg)
}
