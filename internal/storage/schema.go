package storage

const schema = `
-- Subjects, chapters and questions mirror the deck files; position preserves
-- insertion order within each parent.
CREATE TABLE IF NOT EXISTS subjects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chapters (
    id TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL,
    name TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(subject_id) REFERENCES subjects(id)
);

-- Scheduling state lives on the question row; understanding and interval are
-- stored in their legacy string forms, timestamps as RFC-3339 text.
CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    chapter_id TEXT NOT NULL,
    text TEXT NOT NULL,
    understanding TEXT NOT NULL DEFAULT '',
    previous_understanding TEXT NOT NULL DEFAULT '',
    interval TEXT NOT NULL DEFAULT '未設定',
    correct_rate INTEGER NOT NULL DEFAULT 0,
    answer_count INTEGER NOT NULL DEFAULT 0,
    last_answered TEXT,
    next_date TEXT,
    comment TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0,
    source_id INTEGER,

    FOREIGN KEY(chapter_id) REFERENCES chapters(id),
    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- Append-only answer log. This is the source of truth for sequence analysis;
-- question rows are a materialized summary of it.
CREATE TABLE IF NOT EXISTS answer_history (
    id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL,
    is_correct INTEGER NOT NULL,
    understanding TEXT NOT NULL,
    timestamp TEXT NOT NULL,

    FOREIGN KEY(question_id) REFERENCES questions(id)
);

CREATE INDEX IF NOT EXISTS idx_answer_history_question
    ON answer_history(question_id, timestamp);

-- Deck sources: a local directory or a git repository URL.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned TEXT
);
`
