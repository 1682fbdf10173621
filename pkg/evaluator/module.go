package evaluator

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/thomasrohde/gemini/pkg/ast"
	"github.com/thomasrohde/gemini/pkg/diagnostics"
)

// Module is a loaded compilation unit together with the persistent
// environment its top-level code ran in.
type Module struct {
	Name      string
	Canonical string
	Env       EnvID
	Unit      *ast.Program
}

// execImport binds the module named by s to its alias in the current
// environment, loading and running it on first use.
func (ev *evaluator) execImport(s *ast.ImportStmt) error {
	canonical := s.CanonicalName()
	span := s.Span

	if mod, ok := ev.modules[canonical]; ok {
		ev.stats.CacheHits++
		ev.debug("module cache hit", slog.String("module", canonical), slog.String("alias", s.Alias))
		ev.emit(TraceModuleCacheHit, &span, map[string]string{"module": canonical, "alias": s.Alias})
		ev.current.Define(s.Alias, ModuleValue{M: mod})
		return nil
	}

	for i, name := range ev.loading {
		if name == canonical {
			chain := make([]string, 0, len(ev.loading)-i+1)
			for _, c := range ev.loading[i:] {
				chain = append(chain, strings.TrimSuffix(c, ast.SourceExt))
			}
			chain = append(chain, s.Name)
			return diagnostics.Errorf(diagnostics.EModuleResolution, &span,
				"import cycle detected: %s", strings.Join(chain, " -> "))
		}
	}

	if ev.opts.Modules == nil {
		return diagnostics.Errorf(diagnostics.EModuleResolution, &span, "cannot import '%s': no module source", s.Name)
	}

	ev.debug("module cache miss", slog.String("module", canonical))
	ev.emit(TraceImportStart, &span, map[string]string{"module": canonical})

	unit, err := ev.opts.Modules.Load(ev.ctx, canonical)
	if err != nil {
		var de *diagnostics.Error
		if errors.As(err, &de) {
			return de
		}
		return diagnostics.Errorf(diagnostics.EModuleResolution, &span, "cannot import '%s': %v", s.Name, err)
	}

	id := ev.arena.alloc()
	mod := &Module{Name: s.Name, Canonical: canonical, Env: id, Unit: unit}

	savedEnv, savedDef, savedUnit, savedBase := ev.current, ev.def, ev.unit, ev.frameBase
	ev.current = ev.arena.get(id)
	ev.def = id
	ev.unit = unit
	ev.frameBase = len(ev.frames)
	ev.loading = append(ev.loading, canonical)

	err = ev.execStmts(unit.Body.Stmts)

	ev.loading = ev.loading[:len(ev.loading)-1]
	ev.current, ev.def, ev.unit, ev.frameBase = savedEnv, savedDef, savedUnit, savedBase
	if err != nil {
		return err
	}

	ev.modules[canonical] = mod
	ev.stats.ModulesLoaded++
	ev.current.Define(s.Alias, ModuleValue{M: mod})
	ev.emit(TraceImportEnd, &span, map[string]string{"module": canonical, "alias": s.Alias})
	return nil
}
