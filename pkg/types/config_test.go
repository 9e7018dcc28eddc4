package types

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty descriptor returns ErrMissingDescriptor",
			config:  Config{PoolMin: 1, PoolMax: 2},
			wantErr: ErrMissingDescriptor,
		},
		{
			name:    "negative min returns ErrInvalidPoolSize",
			config:  Config{URI: "sqlite:///tmp/a.db", PoolMin: -1, PoolMax: 2},
			wantErr: ErrInvalidPoolSize,
		},
		{
			name:    "zero max returns ErrInvalidPoolSize",
			config:  Config{URI: "sqlite:///tmp/a.db"},
			wantErr: ErrInvalidPoolSize,
		},
		{
			name:    "min above max returns ErrInvalidPoolSize",
			config:  Config{URI: "sqlite:///tmp/a.db", PoolMin: 3, PoolMax: 2},
			wantErr: ErrInvalidPoolSize,
		},
		{
			name:    "negative timeout returns ErrInvalidPoolSize",
			config:  Config{URI: "sqlite:///tmp/a.db", PoolMin: 1, PoolMax: 2, BorrowTimeout: -time.Second},
			wantErr: ErrInvalidPoolSize,
		},
		{
			name:    "bad default table returns ErrInvalidName",
			config:  Config{URI: "sqlite:///tmp/a.db", PoolMin: 1, PoolMax: 2, DefaultTable: "drop table"},
			wantErr: ErrInvalidName,
		},
		{
			name:    "valid sqlite config",
			config:  Config{URI: "sqlite:///tmp/a.db", PoolMin: 1, PoolMax: 2},
			wantErr: nil,
		},
		{
			name:    "min of zero is valid",
			config:  Config{URI: "postgres://db/mail", PoolMin: 0, PoolMax: 1},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{URI: "sqlite:///tmp/a.db"}.WithDefaults()
	want := Config{
		URI:           "sqlite:///tmp/a.db",
		PoolMin:       DefaultPoolMin,
		PoolMax:       DefaultPoolMax,
		BorrowTimeout: DefaultBorrowTimeout,
		DefaultTable:  DefaultTableName,
	}
	if got != want {
		t.Fatalf("WithDefaults() = %+v, want %+v", got, want)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}

	custom := Config{URI: "x", PoolMin: 2, PoolMax: 4, BorrowTimeout: time.Second, DefaultTable: "emails"}
	if got := custom.WithDefaults(); got != custom {
		t.Fatalf("WithDefaults() overwrote explicit values: %+v", got)
	}
}

func TestValidTableName(t *testing.T) {
	longest := "t" + strings.Repeat("x", MaxTableNameLen-1)
	valid := []string{"emails", "_default", "action_items", "T1", longest}
	for _, name := range valid {
		if !ValidTableName(name) {
			t.Errorf("ValidTableName(%q) = false, want true", name)
		}
	}
	invalid := []string{"", "1emails", "e-mails", "emails;", "my table", `"x"`, longest + "x"}
	for _, name := range invalid {
		if ValidTableName(name) {
			t.Errorf("ValidTableName(%q) = true, want false", name)
		}
	}
}

func TestStandardTableNamesAreValid(t *testing.T) {
	for _, name := range StandardTableNames {
		if !ValidTableName(name) {
			t.Errorf("standard table %q is not a valid name", name)
		}
	}
}
