package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("NAMEPLATE", "")
	t.Setenv("TOLERANCE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Test.Tolerance != "+/- 10" {
		t.Errorf("tolerance = %s, want +/- 10", cfg.Test.Tolerance)
	}
	if cfg.Database.URL != "" {
		t.Errorf("database url = %s, want empty", cfg.Database.URL)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NAMEPLATE", "20000")
	t.Setenv("RC_POA", "800")
	t.Setenv("DAS_FILE", "/data/das.csv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s, want 9090", cfg.Server.Port)
	}
	if cfg.Test.Nameplate != 20000 {
		t.Errorf("nameplate = %v, want 20000", cfg.Test.Nameplate)
	}
	if cfg.Test.POA != 800 {
		t.Errorf("rc poa = %v, want 800", cfg.Test.POA)
	}
	if cfg.Data.DASFile != "/data/das.csv" {
		t.Errorf("das file = %s", cfg.Data.DASFile)
	}
}

func TestLoad_RejectsNegativeNameplate(t *testing.T) {
	t.Setenv("NAMEPLATE", "-5")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for negative nameplate")
	}
}
