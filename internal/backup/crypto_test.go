package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// sealSnapshot writes content to a temp file, encrypts it, and returns the
// encrypted path plus a scratch path for decryption.
func sealSnapshot(t *testing.T, content []byte, passphrase string, salt []byte) (encPath, decPath string) {
	t.Helper()
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "snapshot.db")
	encPath = filepath.Join(dir, "snapshot.db.enc")
	decPath = filepath.Join(dir, "restored.db")

	if err := os.WriteFile(srcPath, content, 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := EncryptFile(srcPath, encPath, passphrase, salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return encPath, decPath
}

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(salt1), saltSize)
	}

	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key := DeriveKey("passphrase", salt)
	if len(key) != keySize {
		t.Errorf("key length = %d, want %d", len(key), keySize)
	}
	if !bytes.Equal(key, DeriveKey("passphrase", salt)) {
		t.Error("same passphrase and salt should derive the same key")
	}
	if bytes.Equal(key, DeriveKey("other", salt)) {
		t.Error("different passphrases should derive different keys")
	}
	if bytes.Equal(key, DeriveKey("passphrase", []byte("fedcba0987654321"))) {
		t.Error("different salts should derive different keys")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	original := []byte("sqlite snapshot bytes would be here")
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}

	encPath, decPath := sealSnapshot(t, original, "test-passphrase-123", salt)

	encrypted, err := os.ReadFile(encPath)
	if err != nil {
		t.Fatalf("read encrypted: %v", err)
	}
	if bytes.Contains(encrypted, original) {
		t.Error("envelope must not contain the plaintext")
	}
	if !bytes.Equal(encrypted[:saltSize], salt) {
		t.Error("envelope should start with the salt")
	}

	if err := DecryptFile(encPath, decPath, "test-passphrase-123"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	restored, err := os.ReadFile(decPath)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(restored, original) {
		t.Error("restored content should match the original")
	}
}

func TestSnapshotEmpty(t *testing.T) {
	salt, _ := GenerateSalt()
	encPath, decPath := sealSnapshot(t, []byte{}, "password", salt)

	if err := DecryptFile(encPath, decPath, "password"); err != nil {
		t.Fatalf("decrypt empty snapshot: %v", err)
	}
	restored, _ := os.ReadFile(decPath)
	if len(restored) != 0 {
		t.Errorf("expected empty restored file, got %d bytes", len(restored))
	}
}

func TestDecryptRejectsWrongPassphrase(t *testing.T) {
	salt, _ := GenerateSalt()
	encPath, decPath := sealSnapshot(t, []byte("secret data"), "correct-password", salt)

	if err := DecryptFile(encPath, decPath, "wrong-password"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	salt, _ := GenerateSalt()
	encPath, decPath := sealSnapshot(t, []byte("secret data"), "password", salt)

	data, err := os.ReadFile(encPath)
	if err != nil {
		t.Fatalf("read encrypted: %v", err)
	}
	data[saltSize+nonceSize+1] ^= 0xFF
	if err := os.WriteFile(encPath, data, 0600); err != nil {
		t.Fatalf("write tampered: %v", err)
	}

	if err := DecryptFile(encPath, decPath, "password"); err == nil {
		t.Fatal("expected error with tampered ciphertext")
	}
}

func TestDecryptRejectsTruncatedEnvelope(t *testing.T) {
	dir := t.TempDir()
	encPath := filepath.Join(dir, "short.db.enc")

	if err := os.WriteFile(encPath, []byte("too short"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := DecryptFile(encPath, filepath.Join(dir, "out.db"), "password"); err == nil {
		t.Fatal("expected error for a truncated envelope")
	}
}
