package db

// SchemaSQL contains the meeting_job table definition.
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS meeting_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS filename ON meeting_job TYPE string;
    DEFINE FIELD IF NOT EXISTS audio_path ON meeting_job TYPE string;
    DEFINE FIELD IF NOT EXISTS state ON meeting_job TYPE string
        ASSERT $value IN ["received", "transcribing", "summarizing", "completed", "failed"];
    DEFINE FIELD IF NOT EXISTS transcript ON meeting_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS detected_language ON meeting_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS summary ON meeting_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS action_items ON meeting_job TYPE option<array<string>>;
    DEFINE FIELD IF NOT EXISTS decisions ON meeting_job TYPE option<array<string>>;
    DEFINE FIELD IF NOT EXISTS error_message ON meeting_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON meeting_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON meeting_job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS meeting_job_state ON meeting_job FIELDS state;
    DEFINE INDEX IF NOT EXISTS meeting_job_created ON meeting_job FIELDS created_at;
`
