package webauthnhandler

import (
	"testing"

	"github.com/go-webauthn/webauthn/webauthn"
)

func Test_relyingParty(t *testing.T) {
	tests := []struct {
		addr, fqdn string
		wantOrigin string
	}{
		{addr: "localhost:8081", fqdn: "localhost", wantOrigin: "http://localhost:8081"},
		{addr: "0.0.0.0:8081", fqdn: "trainer.example.com", wantOrigin: "https://trainer.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.fqdn, func(t *testing.T) {
			cfg := relyingParty(tt.addr, tt.fqdn)
			if len(cfg.RPOrigins) != 1 || cfg.RPOrigins[0] != tt.wantOrigin {
				t.Errorf("RPOrigins = %v, want [%s]", cfg.RPOrigins, tt.wantOrigin)
			}
			if cfg.RPID != tt.fqdn {
				t.Errorf("RPID = %q, want %q", cfg.RPID, tt.fqdn)
			}
			if _, err := webauthn.New(cfg); err != nil {
				t.Errorf("webauthn.New() error = %v", err)
			}
		})
	}
}
