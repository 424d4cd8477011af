package jobqueue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, job_type, document_id, status, priority, retry_count, max_retries, payload_json, result_json, error_message, worker_id, lease_expires_ms, created_at, updated_at, started_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		jobType      string
		documentID   int64
		statusStr    string
		priority     int
		retryCount   int
		maxRetries   int
		payload      sql.NullString
		result       sql.NullString
		errorMessage sql.NullString
		workerID     sql.NullString
		leaseMS      sql.NullInt64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&jobType,
		&documentID,
		&statusStr,
		&priority,
		&retryCount,
		&maxRetries,
		&payload,
		&result,
		&errorMessage,
		&workerID,
		&leaseMS,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Type:         Type(jobType),
		DocumentID:   documentID,
		Status:       Status(statusStr),
		Priority:     priority,
		RetryCount:   retryCount,
		MaxRetries:   maxRetries,
		PayloadJSON:  payload.String,
		ResultJSON:   result.String,
		ErrorMessage: errorMessage.String,
		WorkerID:     workerID.String,
	}
	if leaseMS.Valid {
		t := time.UnixMilli(leaseMS.Int64).UTC()
		job.LeaseExpires = &t
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.FinishedAt = parseNullableTime(finishedRaw)
	return job, nil
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
