package store

// Subscription queries.
const (
	queryUpsertSubscription = `
		INSERT INTO subscriptions (user_id, query, query_key, reference_price, url)
		VALUES (@user_id, @query, @query_key, @reference_price, @url)
		ON CONFLICT (user_id, query_key) DO UPDATE SET
			url        = COALESCE(NULLIF(EXCLUDED.url, ''), subscriptions.url),
			updated_at = now()
		RETURNING id, user_id, query, reference_price, last_notified_price,
			url, created_at, updated_at, (xmax = 0) AS created`

	queryListSubscriptionsByUser = `
		SELECT id, user_id, query, reference_price, last_notified_price,
			url, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY seq`

	queryDeleteSubscription = `
		DELETE FROM subscriptions WHERE user_id = $1 AND id = $2`

	querySnapshotSubscriptions = `
		SELECT id, user_id, query, reference_price, last_notified_price,
			url, created_at, updated_at
		FROM subscriptions
		ORDER BY user_id, seq`

	queryApplyPriceDrop = `
		UPDATE subscriptions SET
			reference_price     = $3,
			last_notified_price = $3,
			updated_at          = now()
		WHERE id = $1 AND reference_price = $2`

	querySeedReferencePrice = `
		UPDATE subscriptions SET
			reference_price = $2,
			updated_at      = now()
		WHERE id = $1 AND reference_price IS NULL`
)

// Scheduler queries.
const (
	queryInsertJobRun = `
		INSERT INTO job_runs (job_name)
		VALUES ($1)
		RETURNING id`

	queryCompleteJobRun = `
		UPDATE job_runs SET
			completed_at  = now(),
			status        = $2,
			error_text    = $3,
			rows_affected = $4
		WHERE id = $1`

	queryListJobRuns = `
		SELECT id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryListLatestJobRuns = `
		SELECT DISTINCT ON (job_name)
			id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		ORDER BY job_name, started_at DESC`

	queryMarkStaleJobRunsFailed = `
		UPDATE job_runs SET
			status       = 'failed',
			error_text   = 'recovered: job did not complete',
			completed_at = now()
		WHERE status = 'running' AND started_at < $1`

	queryDeleteOldJobRuns = `
		DELETE FROM job_runs WHERE started_at < now() - interval '30 days'`

	queryAcquireSchedulerLock = `
		INSERT INTO scheduler_locks (job_name, lock_holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_name) DO UPDATE
			SET locked_at   = now(),
				lock_holder = EXCLUDED.lock_holder,
				expires_at  = EXCLUDED.expires_at
			WHERE scheduler_locks.expires_at < now()
				OR scheduler_locks.lock_holder = EXCLUDED.lock_holder
		RETURNING job_name`

	queryReleaseSchedulerLock = `
		DELETE FROM scheduler_locks WHERE job_name = $1 AND lock_holder = $2`
)
