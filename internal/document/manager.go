package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ferrolab/certline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrSourceUnreadable = errors.New("certificate_source_unreadable")
	ErrArtifactMissing  = errors.New("certificate_artifact_missing")
)

const (
	byOrderDir = "by-order"
	byGradeDir = "by-grade"
)

// Manager relocates certificate PDFs between the intake root and the two
// archive classification trees. It owns all filesystem access for
// certificates; nothing else in the service touches these paths.
type Manager struct {
	log        *zap.Logger
	intakeRoot string
	archiveRoot string
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

func NewManager(p Params) *Manager {
	return &Manager{
		log:         p.Log.Named("document.manager"),
		intakeRoot:  p.Cfg.Documents.IntakeDir,
		archiveRoot: p.Cfg.Documents.ArchiveDir,
	}
}

// NewManagerWithRoots constructs a manager over explicit roots (used in tests).
func NewManagerWithRoots(log *zap.Logger, intakeRoot, archiveRoot string) *Manager {
	return &Manager{log: log.Named("document.manager"), intakeRoot: intakeRoot, archiveRoot: archiveRoot}
}

// FileIntake copies a freshly scanned certificate into the intake root under
// its deterministic name and returns the intake path.
func (m *Manager) FileIntake(ctx context.Context, sourcePath string, lot LotInfo) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	source := strings.TrimSpace(sourcePath)
	if source == "" {
		return "", ErrSourceUnreadable
	}
	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSourceUnreadable, source)
	}

	if err := os.MkdirAll(m.intakeRoot, 0o755); err != nil {
		return "", fmt.Errorf("create intake root: %w", err)
	}

	target := filepath.Join(m.intakeRoot, FileName(lot))
	if err := copyFile(source, target); err != nil {
		return "", fmt.Errorf("file intake copy: %w", err)
	}

	m.log.Info("certificate filed to intake",
		zap.String("source", source),
		zap.String("target", target),
	)
	return target, nil
}

// Archive moves the lot's intake artifact into both archive trees: the
// order-scoped copy and the grade-scoped copy. The intake copy is deleted
// once both archive copies exist. Returns the order-scoped path, the new
// canonical location.
//
// A missing intake file yields ErrArtifactMissing; the caller surfaces it as
// a warning and must not roll back the status transition that triggered the
// archival. Certificates can be re-attached manually.
func (m *Manager) Archive(ctx context.Context, lot LotInfo) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	current := strings.TrimSpace(lot.CertificatePath)
	if current == "" {
		return "", ErrArtifactMissing
	}
	if _, err := os.Stat(current); err != nil {
		return "", fmt.Errorf("%w: %s", ErrArtifactMissing, current)
	}

	name := filepath.Base(current)
	orderPath := filepath.Join(m.archiveRoot, byOrderDir, orderDir(lot), gradeDir(lot), sizeShapeDir(lot), name)
	gradePath := filepath.Join(m.archiveRoot, byGradeDir, gradeDir(lot), sizeShapeDir(lot), name)

	for _, target := range []string{orderPath, gradePath} {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", fmt.Errorf("create archive dir: %w", err)
		}
		if err := copyFile(current, target); err != nil {
			return "", fmt.Errorf("archive copy: %w", err)
		}
	}

	if err := os.Remove(current); err != nil {
		// Both archive copies are in place; a stale intake file is only
		// noise, not data loss.
		m.log.Warn("failed to remove intake copy after archive",
			zap.String("path", current),
			zap.Error(err),
		)
	}

	m.log.Info("certificate archived",
		zap.String("order_path", orderPath),
		zap.String("grade_path", gradePath),
	)
	return orderPath, nil
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	return out.Close()
}
