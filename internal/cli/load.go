package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/mirkit/internal/config"
	"github.com/roach88/mirkit/internal/fixture"
	"github.com/roach88/mirkit/internal/mir"
)

// loadInputs loads a fixture, the pipeline at pipelinePath (the built-in
// pipeline when empty) and the bodies named in names (every fn when
// empty). Errors are ExitErrors with ExitCommandError.
func loadInputs(f *OutputFormatter, fixturePath, pipelinePath string, names []string) (*fixture.Fixture, *config.Pipeline, []*mir.Body, error) {
	fx, err := fixture.Load(fixturePath)
	if err != nil {
		return nil, nil, nil, f.Fail(ExitCommandError, ErrCodeFixture, err.Error(), map[string]string{"path": fixturePath})
	}

	pipeline := config.Default()
	if pipelinePath != "" {
		if pipeline, err = config.LoadPipeline(pipelinePath); err != nil {
			return nil, nil, nil, f.Fail(ExitCommandError, ErrCodePipeline, err.Error(), map[string]string{"path": pipelinePath})
		}
	}

	bodies, err := selectBodies(fx, names)
	if err != nil {
		return nil, nil, nil, f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	return fx, pipeline, bodies, nil
}

func selectBodies(fx *fixture.Fixture, names []string) ([]*mir.Body, error) {
	if len(names) == 0 {
		return fx.Fns, nil
	}
	bodies := make([]*mir.Body, 0, len(names))
	for _, name := range names {
		b, ok := fx.Body(name)
		if !ok {
			return nil, fmt.Errorf("fixture has no body %q", name)
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

// parseDefID parses "index" or "crate:index".
func parseDefID(s string) (mir.DefID, error) {
	crate, index, ok := strings.Cut(s, ":")
	if !ok {
		crate, index = "0", s
	}
	c, err := strconv.ParseUint(crate, 10, 32)
	if err != nil {
		return mir.DefID{}, fmt.Errorf("invalid def id %q: bad crate", s)
	}
	i, err := strconv.ParseUint(index, 10, 32)
	if err != nil {
		return mir.DefID{}, fmt.Errorf("invalid def id %q: bad index", s)
	}
	return mir.DefID{Crate: uint32(c), Index: uint32(i)}, nil
}
