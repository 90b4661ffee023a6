package silk

import (
	"context"
	"fmt"

	"github.com/dekarrin/silk/track"
)

// savePhase is one step of the save sequence. The sequence is defined once
// as data and executed by a single driver; the blocking and context-aware
// entry points share it rather than duplicating the orchestration.
type savePhase struct {
	name string
	run  func(ctx context.Context) error
}

// SaveChanges reconciles every tracked change with storage, blocking until
// done. It is equivalent to SaveChangesContext with a background context.
func (s *Set[E]) SaveChanges() error {
	return s.SaveChangesContext(context.Background())
}

// SaveChangesContext reconciles every tracked change with storage. The
// phases run in strict order, each gated on the previous succeeding:
//
//  1. synchronize indexes for the entity type
//  2. commit pending relationship changes, using the changeset as it stands
//     before detection
//  3. run change detection
//  4. validate every Added and Updated entity, if a validator is configured
//  5. write the changeset
//  6. commit the tracker: Deleted entries are dropped, everything else is
//     reset to no pending changes
//
// Cancellation is cooperative and checked at phase boundaries through phase
// 5. Any failure or cancellation before the write completes leaves the
// changeset exactly as it was, so a retried save reissues the same
// operations. Once the write has succeeded the commit always runs; by then
// storage has already been mutated, and cancellation must not make the
// tracker disagree with it. A caller cancelled during or after the write
// phase should re-query storage rather than assume a rollback.
func (s *Set[E]) SaveChangesContext(ctx context.Context) error {
	if s.writer == nil {
		return ErrNotConfigured
	}

	phases := []savePhase{
		{name: "sync-indexes", run: func(ctx context.Context) error {
			if s.indexes == nil {
				return nil
			}
			return s.indexes.EnsureIndexes(ctx)
		}},
		{name: "commit-relations", run: func(ctx context.Context) error {
			if s.relations == nil {
				return nil
			}
			return s.relations.CommitRelations(ctx, s.tracker.Changeset())
		}},
		{name: "detect-changes", run: func(ctx context.Context) error {
			s.tracker.DetectChanges()
			return nil
		}},
		{name: "validate", run: func(ctx context.Context) error {
			return s.validatePending()
		}},
		{name: "write", run: func(ctx context.Context) error {
			if err := s.writer.WriteChanges(ctx, s.tracker.Changeset()); err != nil {
				return WrapWriteError(err)
			}
			return nil
		}},
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := phase.run(ctx); err != nil {
			if s.log != nil {
				s.log.Errorf("save aborted in phase %s: %v", phase.name, err)
			}
			return fmt.Errorf("%s: %w", phase.name, err)
		}
		if s.log != nil {
			s.log.Debugf("save phase %s complete", phase.name)
		}
	}

	// the write has been applied; committing the tracker is no longer
	// cancellable
	s.tracker.CommitChanges()
	if s.log != nil {
		s.log.Debug("save committed")
	}
	return nil
}

// validatePending runs the configured validator over every entity currently
// tracked as Added or Updated, stopping at the first failure.
func (s *Set[E]) validatePending() error {
	if s.validator == nil {
		return nil
	}

	for _, ent := range s.tracker.Entries() {
		if ent.State != track.Added && ent.State != track.Updated {
			continue
		}
		if err := s.validator.Validate(ent.Entity); err != nil {
			return err
		}
	}
	return nil
}
