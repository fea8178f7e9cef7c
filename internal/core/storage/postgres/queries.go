package postgres

// SQL for the event log, partition catalog, dimension tables and view state.

const (
	// queryAppendEvent inserts one event. Rows are routed by postgres to the
	// partition covering event_time; with no such partition the insert fails
	// with check_violation (23514).
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates.
	queryAppendEvent = `
		INSERT INTO events (
			event_id, event_time, event_type, product_id, category_id,
			brand_id, price, user_id, user_session
		)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), NULLIF($6, 0), $7, $8, $9)
		ON CONFLICT (event_id, event_time) DO NOTHING
		RETURNING ingest_seq
	`

	// queryHighWatermark returns the largest ingest_seq assigned so far.
	queryHighWatermark = `SELECT COALESCE(MAX(ingest_seq), 0) FROM events`

	// queryScanPartition streams one partition's rows up to a watermark.
	// The event_time bounds let the planner prune to a single partition.
	queryScanPartition = `
		SELECT
			event_id, event_time, event_type, product_id,
			COALESCE(category_id, 0), COALESCE(brand_id, 0),
			price, user_id, user_session, ingest_seq
		FROM events
		WHERE event_time >= $1
		  AND event_time < $2
		  AND ingest_seq <= $3
	`

	queryLoadPartitions = `
		SELECT partition_id, range_start, range_end
		FROM event_partitions
		ORDER BY range_start ASC
	`

	queryInsertPartition = `
		INSERT INTO event_partitions (partition_id, range_start, range_end)
		VALUES ($1, $2, $3)
		ON CONFLICT (partition_id) DO NOTHING
	`

	// createPartitionDDL is formatted with a quoted identifier and two quoted
	// literals; DDL does not accept bind parameters.
	createPartitionDDL = `CREATE TABLE IF NOT EXISTS %s PARTITION OF events FOR VALUES FROM (%s) TO (%s)`

	queryLoadBrands = `SELECT brand_id, brand_name FROM brands`

	queryLoadCategories = `
		SELECT category_id, category_code, category_level_1, category_level_2, category_level_3
		FROM categories
	`

	queryLoadProducts = `
		SELECT product_id, COALESCE(category_id, 0), COALESCE(brand_id, 0)
		FROM products
	`

	queryLoadViewStates = `
		SELECT view_name, as_of, version, fingerprint, updated_at
		FROM view_refresh_state
	`

	// queryUpsertViewState never moves a view backwards.
	queryUpsertViewState = `
		INSERT INTO view_refresh_state (view_name, as_of, version, fingerprint, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (view_name) DO UPDATE SET
			as_of       = EXCLUDED.as_of,
			version     = EXCLUDED.version,
			fingerprint = EXCLUDED.fingerprint,
			updated_at  = EXCLUDED.updated_at
		WHERE view_refresh_state.version < EXCLUDED.version
	`
)
