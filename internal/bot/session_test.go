package bot

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupSessionDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE bot_sessions (
			chat_id INTEGER PRIMARY KEY,
			state TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			updated_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSQLiteSessionStore_GetMissingReturnsIdle(t *testing.T) {
	store := NewSQLiteSessionStore(setupSessionDB(t))

	session, err := store.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.ChatID != 42 || session.State != StateIdle {
		t.Errorf("session = %+v, want fresh idle for chat 42", session)
	}
	if session.Payload.Add != nil || session.Payload.Edit != nil {
		t.Errorf("fresh session carries payload: %+v", session.Payload)
	}
}

func TestSQLiteSessionStore_PutGetRoundTrip(t *testing.T) {
	store := NewSQLiteSessionStore(setupSessionDB(t))
	ctx := context.Background()

	mac := "AA:BB:CC:DD:EE:FF"
	in := &Session{
		ChatID: 42,
		State:  StateAddSetAddress,
		Payload: Payload{
			Add: &AddPayload{Name: "Desk Lamp", Type: "lightbulb", Manufacturer: "yeelight", MAC: &mac},
		},
	}
	if err := store.Put(ctx, in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	out, err := store.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.State != StateAddSetAddress {
		t.Errorf("state = %s, want %s", out.State, StateAddSetAddress)
	}
	if out.Payload.Add == nil || out.Payload.Add.Name != "Desk Lamp" {
		t.Fatalf("payload = %+v", out.Payload)
	}
	if out.Payload.Add.MAC == nil || *out.Payload.Add.MAC != mac {
		t.Errorf("mac = %v, want %s", out.Payload.Add.MAC, mac)
	}
	if out.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set on load")
	}
}

func TestSQLiteSessionStore_PutOverwrites(t *testing.T) {
	store := NewSQLiteSessionStore(setupSessionDB(t))
	ctx := context.Background()

	if err := store.Put(ctx, &Session{ChatID: 42, State: StateAddSetName}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, &Session{ChatID: 42, State: StateIdle}); err != nil {
		t.Fatalf("Put() second error = %v", err)
	}

	out, err := store.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.State != StateIdle {
		t.Errorf("state = %s, want overwritten to idle", out.State)
	}
}

func TestSQLiteSessionStore_CorruptPayloadResets(t *testing.T) {
	db := setupSessionDB(t)
	store := NewSQLiteSessionStore(db)
	ctx := context.Background()

	_, err := db.Exec(
		`INSERT INTO bot_sessions (chat_id, state, payload, updated_at) VALUES (?, ?, ?, ?)`,
		42, string(StateAddSetMAC), "{not json", "2026-01-01T00:00:00Z",
	)
	if err != nil {
		t.Fatalf("seeding corrupt row: %v", err)
	}

	out, err := store.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.State != StateIdle {
		t.Errorf("state = %s, want reset to idle on corrupt payload", out.State)
	}
}
