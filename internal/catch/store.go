package catch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallbodies/catch-api/pkg/models"
)

// PostgresSearcher implements Searcher on pgx/v5, delegating the
// cross-match itself to a Matcher.
type PostgresSearcher struct {
	pool    *pgxpool.Pool
	matcher Matcher
}

// NewPostgresSearcher creates a new PostgresSearcher.
func NewPostgresSearcher(pool *pgxpool.Pool, matcher Matcher) *PostgresSearcher {
	return &PostgresSearcher{pool: pool, matcher: matcher}
}

// Ping checks database connectivity.
func (s *PostgresSearcher) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresSearcher) IsCached(ctx context.Context, target, source string, params SearchParams) (bool, error) {
	var cached bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM catch_queries
		   WHERE query = $1 AND source = $2 AND status = 'finished'
		     AND start_date IS NOT DISTINCT FROM $3
		     AND stop_date IS NOT DISTINCT FROM $4
		     AND uncertainty_ellipse = $5 AND padding = $6)`,
		target, source, params.StartDate, params.StopDate, params.UncertaintyEllipse, params.Padding,
	).Scan(&cached)
	if err != nil {
		return false, fmt.Errorf("check cache for %s: %w", source, err)
	}
	return cached, nil
}

func (s *PostgresSearcher) Search(ctx context.Context, jobID uuid.UUID, target string, sources []string, params SearchParams, cached bool, progress Progress) error {
	if progress == nil {
		progress = func(string) {}
	}
	for _, source := range sources {
		if cached {
			copied, err := s.copyCached(ctx, jobID, target, source, params, progress)
			if err != nil {
				return err
			}
			if copied {
				continue
			}
			// cache row vanished between the check and the copy; search
		}
		if err := s.searchSource(ctx, jobID, target, source, params, progress); err != nil {
			return err
		}
	}
	return nil
}

// searchSource runs the cross-match for one source and persists the
// query record and its found observations.
func (s *PostgresSearcher) searchSource(ctx context.Context, jobID uuid.UUID, target, source string, params SearchParams, progress Progress) error {
	progress(fmt.Sprintf("Searching %s.", SourceName(source)))

	started := time.Now()
	observations, err := s.matcher.FindObservations(ctx, target, source, params, progress)
	elapsed := time.Since(started).Seconds()
	if err != nil {
		s.recordQuery(ctx, jobID, target, source, params, "errored", nil)
		return fmt.Errorf("search %s: %w", source, err)
	}

	queryID, err := s.insertQuery(ctx, jobID, target, source, params, "finished", &elapsed)
	if err != nil {
		return err
	}
	for _, obs := range observations {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO found_observations
			   (query_id, product_id, mjd_start, mjd_stop, fov, filter, exposure,
			    ra, "dec", dra, ddec, rh, delta, phase, vmag, archive_url, cutout_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			queryID, obs.ProductID, obs.MJDStart, obs.MJDStop, obs.FOV, obs.FilterName, obs.ExposureTime,
			obs.RA, obs.Dec, obs.DRA, obs.DDec, obs.RH, obs.Delta, obs.Phase, obs.VMag,
			obs.ArchiveURL, obs.CutoutURL)
		if err != nil {
			return fmt.Errorf("insert observation for %s: %w", source, err)
		}
	}

	progress(fmt.Sprintf("%s: %d observations found.", SourceName(source), len(observations)))
	return nil
}

// copyCached reuses the most recent finished query for the same target
// and parameters, copying its observations under the new job id. It
// reports false when no cache row exists anymore.
func (s *PostgresSearcher) copyCached(ctx context.Context, jobID uuid.UUID, target, source string, params SearchParams, progress Progress) (bool, error) {
	var priorID int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM catch_queries
		 WHERE query = $1 AND source = $2 AND status = 'finished'
		   AND start_date IS NOT DISTINCT FROM $3
		   AND stop_date IS NOT DISTINCT FROM $4
		   AND uncertainty_ellipse = $5 AND padding = $6
		 ORDER BY date DESC LIMIT 1`,
		target, source, params.StartDate, params.StopDate, params.UncertaintyEllipse, params.Padding,
	).Scan(&priorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find cached query for %s: %w", source, err)
	}

	// execution_time stays NULL: no search ran for this job
	queryID, err := s.insertQuery(ctx, jobID, target, source, params, "finished", nil)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO found_observations
		   (query_id, product_id, mjd_start, mjd_stop, fov, filter, exposure,
		    ra, "dec", dra, ddec, rh, delta, phase, vmag, archive_url, cutout_url)
		 SELECT $1, product_id, mjd_start, mjd_stop, fov, filter, exposure,
		        ra, "dec", dra, ddec, rh, delta, phase, vmag, archive_url, cutout_url
		 FROM found_observations WHERE query_id = $2`,
		queryID, priorID)
	if err != nil {
		return false, fmt.Errorf("copy cached observations for %s: %w", source, err)
	}

	progress(fmt.Sprintf("%s: %d observations retrieved from the cache.", SourceName(source), tag.RowsAffected()))
	return true, nil
}

func (s *PostgresSearcher) insertQuery(ctx context.Context, jobID uuid.UUID, target, source string, params SearchParams, status string, executionTime *float64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO catch_queries
		   (job_id, query, source, date, status, execution_time,
		    start_date, stop_date, uncertainty_ellipse, padding)
		 VALUES ($1, $2, $3, NOW(), $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		jobID, target, source, status, executionTime,
		params.StartDate, params.StopDate, params.UncertaintyEllipse, params.Padding,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert query for %s: %w", source, err)
	}
	return id, nil
}

// recordQuery is the best-effort variant used on the error path; the
// search error is what the caller reports, not a bookkeeping failure.
func (s *PostgresSearcher) recordQuery(ctx context.Context, jobID uuid.UUID, target, source string, params SearchParams, status string, executionTime *float64) {
	_, _ = s.insertQuery(ctx, jobID, target, source, params, status, executionTime)
}

func (s *PostgresSearcher) Caught(ctx context.Context, jobID uuid.UUID) ([]models.CaughtObservation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT q.source, o.product_id, o.mjd_start, o.mjd_stop, o.fov, o.filter, o.exposure,
		        o.ra, o."dec", o.dra, o.ddec, o.rh, o.delta, o.phase, o.vmag,
		        o.archive_url, o.cutout_url
		 FROM catch_queries q
		 JOIN found_observations o ON o.query_id = q.id
		 WHERE q.job_id = $1
		 ORDER BY q.source, o.mjd_start`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list caught observations: %w", err)
	}
	defer rows.Close()

	var caught []models.CaughtObservation
	for rows.Next() {
		var obs models.CaughtObservation
		if err := rows.Scan(&obs.Source, &obs.ProductID, &obs.MJDStart, &obs.MJDStop, &obs.FOV,
			&obs.FilterName, &obs.ExposureTime, &obs.RA, &obs.Dec, &obs.DRA, &obs.DDec,
			&obs.RH, &obs.Delta, &obs.Phase, &obs.VMag, &obs.ArchiveURL, &obs.CutoutURL); err != nil {
			return nil, fmt.Errorf("scan caught observation: %w", err)
		}
		obs.SourceName = SourceName(obs.Source)
		caught = append(caught, obs)
	}
	return caught, rows.Err()
}

func (s *PostgresSearcher) Queries(ctx context.Context, jobID uuid.UUID) (models.QueryParameters, []models.SourceStatus, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT q.query, q.source, q.date, q.status, q.execution_time,
		        q.start_date, q.stop_date, q.uncertainty_ellipse, q.padding,
		        (SELECT COUNT(*) FROM found_observations o WHERE o.query_id = q.id)
		 FROM catch_queries q
		 WHERE q.job_id = $1
		 ORDER BY q.source`, jobID)
	if err != nil {
		return models.QueryParameters{}, nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	var params models.QueryParameters
	var statuses []models.SourceStatus
	for rows.Next() {
		var st models.SourceStatus
		if err := rows.Scan(&params.Target, &st.Source, &st.Date, &st.Status, &st.ExecutionTime,
			&params.StartDate, &params.StopDate, &params.UncertaintyEllipse, &params.Padding,
			&st.Count); err != nil {
			return models.QueryParameters{}, nil, fmt.Errorf("scan query status: %w", err)
		}
		st.SourceName = SourceName(st.Source)
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return models.QueryParameters{}, nil, err
	}
	if len(statuses) == 0 {
		return models.QueryParameters{}, nil, ErrNotFound
	}
	return params, statuses, nil
}

func (s *PostgresSearcher) Statistics(ctx context.Context, sources []string) ([]models.SourceSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, name, count, start_date, stop_date, updated
		 FROM survey_statistics
		 WHERE source = ANY($1)
		 ORDER BY name`, sources)
	if err != nil {
		return nil, fmt.Errorf("list survey statistics: %w", err)
	}
	defer rows.Close()

	var summaries []models.SourceSummary
	for rows.Next() {
		var sm models.SourceSummary
		if err := rows.Scan(&sm.Source, &sm.SourceName, &sm.Count, &sm.StartDate, &sm.StopDate, &sm.Updated); err != nil {
			return nil, fmt.Errorf("scan survey statistics: %w", err)
		}
		summaries = append(summaries, sm)
	}
	return summaries, rows.Err()
}

func (s *PostgresSearcher) Updates(ctx context.Context, sources []string) ([]models.QueryUpdate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, MAX(date), status, COUNT(*)
		 FROM catch_queries
		 WHERE source = ANY($1) AND date > NOW() - INTERVAL '7 days'
		 GROUP BY source, status
		 ORDER BY source, status`, sources)
	if err != nil {
		return nil, fmt.Errorf("list query updates: %w", err)
	}
	defer rows.Close()

	var updates []models.QueryUpdate
	for rows.Next() {
		var u models.QueryUpdate
		if err := rows.Scan(&u.Source, &u.Date, &u.Status, &u.Count); err != nil {
			return nil, fmt.Errorf("scan query update: %w", err)
		}
		u.SourceName = SourceName(u.Source)
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

func (s *PostgresSearcher) SearchFixed(ctx context.Context, ra, dec float64, sources []string, params FixedParams) ([]models.FixedObservation, error) {
	var found []models.FixedObservation
	for _, source := range sources {
		observations, err := s.matcher.FindFixed(ctx, ra, dec, source, params)
		if err != nil {
			return nil, fmt.Errorf("fixed search %s: %w", source, err)
		}
		for i := range observations {
			observations[i].SourceName = SourceName(observations[i].Source)
		}
		found = append(found, observations...)
	}
	return found, nil
}
