package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// NotifyChannel is the Postgres NOTIFY channel row-change triggers publish on.
const NotifyChannel = "realtime_changes"

// Connect opens the database connection and runs migrations.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        email TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS profiles (
        id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
        username TEXT NOT NULL UNIQUE,
        full_name TEXT,
        avatar_url TEXT,
        bio TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS channels (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
        name TEXT NOT NULL,
        description TEXT,
        avatar_url TEXT,
        banner_url TEXT,
        subscriber_count INT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS videos (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        channel_id UUID NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
        title TEXT NOT NULL,
        description TEXT,
        video_url TEXT NOT NULL,
        thumbnail_url TEXT NOT NULL,
        duration INT NOT NULL DEFAULT 0,
        view_count BIGINT NOT NULL DEFAULT 0,
        like_count INT NOT NULL DEFAULT 0,
        dislike_count INT NOT NULL DEFAULT 0,
        category TEXT,
        is_short BOOLEAN NOT NULL DEFAULT FALSE,
        visibility TEXT NOT NULL DEFAULT 'public',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS comments (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
        user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
        parent_id UUID REFERENCES comments(id) ON DELETE CASCADE,
        content TEXT NOT NULL,
        like_count INT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS likes (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
        video_id UUID REFERENCES videos(id) ON DELETE CASCADE,
        comment_id UUID REFERENCES comments(id) ON DELETE CASCADE,
        is_like BOOLEAN NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE (user_id, video_id),
        UNIQUE (user_id, comment_id)
    );`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
        subscriber_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
        channel_id UUID NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (subscriber_id, channel_id)
    );`,
	`CREATE TABLE IF NOT EXISTS watch_history (
        user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
        video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
        watch_progress INT NOT NULL DEFAULT 0,
        watched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (user_id, video_id)
    );`,
	`CREATE TABLE IF NOT EXISTS live_streams (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        channel_id UUID NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
        title TEXT NOT NULL,
        description TEXT,
        stream_url TEXT NOT NULL,
        thumbnail_url TEXT,
        viewer_count INT NOT NULL DEFAULT 0,
        is_live BOOLEAN NOT NULL DEFAULT TRUE,
        started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        ended_at TIMESTAMPTZ
    );`,
	`CREATE TABLE IF NOT EXISTS chat_rooms (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        name TEXT NOT NULL,
        description TEXT,
        created_by UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        member_count INT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        chat_room_id UUID REFERENCES chat_rooms(id) ON DELETE CASCADE,
        live_stream_id UUID REFERENCES live_streams(id) ON DELETE CASCADE,
        user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
        content TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        CHECK ((chat_room_id IS NULL) <> (live_stream_id IS NULL))
    );`,
	`CREATE INDEX IF NOT EXISTS chat_messages_room_created_idx ON chat_messages (chat_room_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS chat_messages_stream_created_idx ON chat_messages (live_stream_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS videos_channel_created_idx ON videos (channel_id, created_at DESC);`,
	`CREATE SEQUENCE IF NOT EXISTS realtime_notify_seq;`,
	`CREATE OR REPLACE FUNCTION notify_realtime_change() RETURNS trigger AS $$
    BEGIN
        PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
            'seq', nextval('realtime_notify_seq'),
            'table', TG_TABLE_NAME,
            'op', TG_OP,
            'row', row_to_json(NEW)
        )::text);
        RETURN NEW;
    END;
    $$ LANGUAGE plpgsql;`,
	`DROP TRIGGER IF EXISTS chat_messages_notify ON chat_messages;`,
	`CREATE TRIGGER chat_messages_notify AFTER INSERT ON chat_messages
        FOR EACH ROW EXECUTE FUNCTION notify_realtime_change();`,
	`DROP TRIGGER IF EXISTS live_streams_notify ON live_streams;`,
	`CREATE TRIGGER live_streams_notify AFTER UPDATE ON live_streams
        FOR EACH ROW EXECUTE FUNCTION notify_realtime_change();`,
}
