package database

import (
	"database/sql"
	"time"

	"iptvdesk/services/translation"
)

// TranslationRepository is the durable translation cache. It implements
// translation.Store over sqlite. Records have no TTL; EvictOlderThan exists
// only to bound store size.
type TranslationRepository struct {
	db *sql.DB
}

func NewTranslationRepository(db *sql.DB) *TranslationRepository {
	return &TranslationRepository{db: db}
}

// Get returns the cached translation for (hash, targetLang), if any.
func (r *TranslationRepository) Get(hash, targetLang string) (string, bool, error) {
	var text string
	err := r.db.QueryRow(
		`SELECT translated_text FROM translations WHERE source_text_hash = ? AND target_lang = ?`,
		hash, targetLang,
	).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Put stores a translation record. Records are immutable: a record already
// present for the same key is left untouched.
func (r *TranslationRepository) Put(rec translation.Record) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO translations
			(source_text_hash, source_lang, target_lang, translated_text, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.SourceTextHash, rec.SourceLang, rec.TargetLang, rec.TranslatedText, rec.CreatedAt,
	)
	return err
}

// EvictOlderThan deletes records created before now-age and reports how many
// were removed.
func (r *TranslationRepository) EvictOlderThan(age time.Duration) (int, error) {
	res, err := r.db.Exec(`DELETE FROM translations WHERE created_at < ?`, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Count reports the number of cached translations.
func (r *TranslationRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM translations`).Scan(&n)
	return n, err
}
