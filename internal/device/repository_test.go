package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Create devices table matching the schema
	schema := `
		CREATE TABLE devices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			manufacturer TEXT NOT NULL,
			mac TEXT UNIQUE,
			address TEXT UNIQUE,
			matter_node_id TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_devices_type ON devices(type);
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

// testDevice creates a device for testing.
func testDevice(name string) *Device {
	return &Device{
		Name:         name,
		Type:         DeviceTypeLightbulb,
		Manufacturer: ManufacturerYeelight,
	}
}

func strPtr(s string) *string {
	return &s
}

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates device and assigns id", func(t *testing.T) {
		device := testDevice("Living Room Light")
		device.MAC = strPtr("A4:C1:38:0D:11:22")
		device.Address = strPtr("192.168.1.50")

		err := repo.Create(ctx, device)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if device.ID == 0 {
			t.Fatal("Create() did not assign an id")
		}

		got, err := repo.GetByID(ctx, device.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Name != "Living Room Light" {
			t.Errorf("Name = %q, want %q", got.Name, "Living Room Light")
		}
		if got.MAC == nil || *got.MAC != "A4:C1:38:0D:11:22" {
			t.Errorf("MAC = %v, want A4:C1:38:0D:11:22", got.MAC)
		}
		if got.CreatedAt.IsZero() {
			t.Error("CreatedAt not set")
		}
	})

	t.Run("returns ErrNameTaken for duplicate name", func(t *testing.T) {
		if err := repo.Create(ctx, testDevice("Hallway Socket")); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}

		err := repo.Create(ctx, testDevice("Hallway Socket"))
		if !errors.Is(err, ErrNameTaken) {
			t.Errorf("Create() error = %v, want ErrNameTaken", err)
		}
	})

	t.Run("returns ErrMACTaken for duplicate mac", func(t *testing.T) {
		first := testDevice("TV one")
		first.MAC = strPtr("AA:BB:CC:DD:EE:01")
		if err := repo.Create(ctx, first); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}

		second := testDevice("TV two")
		second.MAC = strPtr("AA:BB:CC:DD:EE:01")
		err := repo.Create(ctx, second)
		if !errors.Is(err, ErrMACTaken) {
			t.Errorf("Create() error = %v, want ErrMACTaken", err)
		}
	})

	t.Run("returns ErrAddressTaken for duplicate address", func(t *testing.T) {
		first := testDevice("Socket one")
		first.Address = strPtr("192.168.1.77")
		if err := repo.Create(ctx, first); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}

		second := testDevice("Socket two")
		second.Address = strPtr("192.168.1.77")
		err := repo.Create(ctx, second)
		if !errors.Is(err, ErrAddressTaken) {
			t.Errorf("Create() error = %v, want ErrAddressTaken", err)
		}
	})

	t.Run("allows multiple devices without mac or address", func(t *testing.T) {
		if err := repo.Create(ctx, testDevice("Bare one")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := repo.Create(ctx, testDevice("Bare two")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	})
}

func TestSQLiteRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("returns ErrDeviceNotFound for missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("round-trips optional fields", func(t *testing.T) {
		device := testDevice("Round trip")
		device.MatterNodeID = strPtr("42")
		if err := repo.Create(ctx, device); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByID(ctx, device.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.MatterNodeID == nil || *got.MatterNodeID != "42" {
			t.Errorf("MatterNodeID = %v, want 42", got.MatterNodeID)
		}
		if got.MAC != nil {
			t.Errorf("MAC = %v, want nil", got.MAC)
		}
	})
}

func TestSQLiteRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("updates fields and clears optionals", func(t *testing.T) {
		device := testDevice("Update me")
		device.MAC = strPtr("AA:BB:CC:DD:EE:10")
		if err := repo.Create(ctx, device); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		device.Name = "Updated"
		device.MAC = nil
		device.MatterNodeID = strPtr("7")
		if err := repo.Update(ctx, device); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := repo.GetByID(ctx, device.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Name != "Updated" {
			t.Errorf("Name = %q, want %q", got.Name, "Updated")
		}
		if got.MAC != nil {
			t.Errorf("MAC = %v, want nil", got.MAC)
		}
		if got.MatterNodeID == nil || *got.MatterNodeID != "7" {
			t.Errorf("MatterNodeID = %v, want 7", got.MatterNodeID)
		}
	})

	t.Run("returns ErrDeviceNotFound for missing device", func(t *testing.T) {
		device := testDevice("Ghost")
		device.ID = 9999
		err := repo.Update(ctx, device)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Update() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestSQLiteRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("deletes existing device", func(t *testing.T) {
		device := testDevice("Delete me")
		if err := repo.Create(ctx, device); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if err := repo.Delete(ctx, device.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		_, err := repo.GetByID(ctx, device.ID)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByID() after delete error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("returns ErrDeviceNotFound for missing device", func(t *testing.T) {
		err := repo.Delete(ctx, 9999)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Delete() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestSQLiteRepository_UniquenessProbes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	device := testDevice("Probe target")
	device.MAC = strPtr("AA:BB:CC:DD:EE:20")
	device.Address = strPtr("192.168.1.90")
	if err := repo.Create(ctx, device); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("name taken without exclusion", func(t *testing.T) {
		taken, err := repo.NameTaken(ctx, "Probe target", 0)
		if err != nil {
			t.Fatalf("NameTaken() error = %v", err)
		}
		if !taken {
			t.Error("NameTaken() = false, want true")
		}
	})

	t.Run("name free when excluding own id", func(t *testing.T) {
		taken, err := repo.NameTaken(ctx, "Probe target", device.ID)
		if err != nil {
			t.Fatalf("NameTaken() error = %v", err)
		}
		if taken {
			t.Error("NameTaken() = true, want false when excluding own id")
		}
	})

	t.Run("mac comparison is case-insensitive", func(t *testing.T) {
		taken, err := repo.MACTaken(ctx, "aa:bb:cc:dd:ee:20", 0)
		if err != nil {
			t.Fatalf("MACTaken() error = %v", err)
		}
		if !taken {
			t.Error("MACTaken() = false, want true for lowercase input")
		}
	})

	t.Run("address free for other value", func(t *testing.T) {
		taken, err := repo.AddressTaken(ctx, "192.168.1.91", 0)
		if err != nil {
			t.Fatalf("AddressTaken() error = %v", err)
		}
		if taken {
			t.Error("AddressTaken() = true, want false")
		}
	})
}

func TestSQLiteRepository_FindFirstMatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	bulb := testDevice("Bedroom ceiling")
	bulb.Type = DeviceTypeLightbulb
	if err := repo.Create(ctx, bulb); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tv := testDevice("Big screen")
	tv.Type = DeviceTypeTv
	tv.Manufacturer = ManufacturerOther
	if err := repo.Create(ctx, tv); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("matches name substring case-insensitively", func(t *testing.T) {
		got, err := repo.FindFirstMatch(ctx, "CEILING")
		if err != nil {
			t.Fatalf("FindFirstMatch() error = %v", err)
		}
		if got.ID != bulb.ID {
			t.Errorf("FindFirstMatch() id = %d, want %d", got.ID, bulb.ID)
		}
	})

	t.Run("matches type vocabulary word", func(t *testing.T) {
		got, err := repo.FindFirstMatch(ctx, "telly")
		if err != nil {
			t.Fatalf("FindFirstMatch() error = %v", err)
		}
		if got.ID != tv.ID {
			t.Errorf("FindFirstMatch() id = %d, want %d", got.ID, tv.ID)
		}
	})

	t.Run("matches synonym with no name hit", func(t *testing.T) {
		got, err := repo.FindFirstMatch(ctx, "lamp")
		if err != nil {
			t.Fatalf("FindFirstMatch() error = %v", err)
		}
		if got.ID != bulb.ID {
			t.Errorf("FindFirstMatch() id = %d, want %d", got.ID, bulb.ID)
		}
	})

	t.Run("returns ErrDeviceNotFound for no match", func(t *testing.T) {
		_, err := repo.FindFirstMatch(ctx, "toaster")
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("FindFirstMatch() error = %v, want ErrDeviceNotFound", err)
		}
	})
}
