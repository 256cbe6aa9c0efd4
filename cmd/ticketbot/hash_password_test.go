package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spec-kit/ticket-bot/internal/auth"
)

func TestHashPassword(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := hashPassword(strings.NewReader("correct horse\n"), &out, &errOut, 4); code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut.String())
	}
	hashed := strings.TrimSpace(out.String())
	if err := auth.CheckAdminPassword(hashed, "correct horse"); err != nil {
		t.Errorf("printed hash does not verify: %v", err)
	}

	out.Reset()
	if code := hashPassword(strings.NewReader("short"), &out, &errOut, 4); code != 1 || out.Len() != 0 {
		t.Errorf("short password should fail, code=%d out=%q", code, out.String())
	}
}
