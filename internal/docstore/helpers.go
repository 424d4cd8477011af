package docstore

import (
	"database/sql"
	"errors"
	"time"
)

const documentColumns = "id, content_hash, original_name, stored_path, final_path, text_path, mime_type, size_bytes, status, title, ocr_needed, page_count, category, suggested_filename, target_path, confidence, classifier_source, matched_rule, trace_json, user_category, user_filename, user_target_path, review_reason, error_message, canonical_id, approved_by, created_at, updated_at, analyzed_at, approved_at, committed_at"

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		id           int64
		contentHash  string
		originalName string
		storedPath   sql.NullString
		finalPath    sql.NullString
		textPath     sql.NullString
		mimeType     sql.NullString
		sizeBytes    int64
		statusStr    string
		title        sql.NullString
		ocrNeeded    sql.NullInt64
		pageCount    sql.NullInt64
		category     sql.NullString
		suggested    sql.NullString
		targetPath   sql.NullString
		confidence   sql.NullFloat64
		source       sql.NullString
		matchedRule  sql.NullString
		traceJSON    sql.NullString
		userCategory sql.NullString
		userFilename sql.NullString
		userTarget   sql.NullString
		reviewReason sql.NullString
		errorMessage sql.NullString
		canonicalID  sql.NullInt64
		approvedBy   sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		analyzedRaw  sql.NullString
		approvedRaw  sql.NullString
		committedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&contentHash,
		&originalName,
		&storedPath,
		&finalPath,
		&textPath,
		&mimeType,
		&sizeBytes,
		&statusStr,
		&title,
		&ocrNeeded,
		&pageCount,
		&category,
		&suggested,
		&targetPath,
		&confidence,
		&source,
		&matchedRule,
		&traceJSON,
		&userCategory,
		&userFilename,
		&userTarget,
		&reviewReason,
		&errorMessage,
		&canonicalID,
		&approvedBy,
		&createdRaw,
		&updatedRaw,
		&analyzedRaw,
		&approvedRaw,
		&committedRaw,
	); err != nil {
		return nil, err
	}

	doc := &Document{
		ID:                id,
		ContentHash:       contentHash,
		OriginalName:      originalName,
		StoredPath:        storedPath.String,
		FinalPath:         finalPath.String,
		TextPath:          textPath.String,
		MimeType:          mimeType.String,
		SizeBytes:         sizeBytes,
		Status:            Status(statusStr),
		Title:             title.String,
		PageCount:         int(pageCount.Int64),
		Category:          category.String,
		SuggestedFilename: suggested.String,
		TargetPath:        targetPath.String,
		ClassifierSource:  source.String,
		MatchedRule:       matchedRule.String,
		TraceJSON:         traceJSON.String,
		UserCategory:      userCategory.String,
		UserFilename:      userFilename.String,
		UserTargetPath:    userTarget.String,
		ReviewReason:      reviewReason.String,
		ErrorMessage:      errorMessage.String,
		ApprovedBy:        approvedBy.String,
	}
	if ocrNeeded.Valid {
		doc.OCRNeeded = ocrNeeded.Int64 != 0
	}
	if confidence.Valid {
		v := confidence.Float64
		doc.Confidence = &v
	}
	if canonicalID.Valid {
		v := canonicalID.Int64
		doc.CanonicalID = &v
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		doc.UpdatedAt = updated
	}
	doc.AnalyzedAt = parseNullableTime(analyzedRaw)
	doc.ApprovedAt = parseNullableTime(approvedRaw)
	doc.CommittedAt = parseNullableTime(committedRaw)
	return doc, nil
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

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
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
