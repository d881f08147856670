package service

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"pdf-workbench/internal/domain"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const (
	privateKeySuffix = "_private_key.pem"
	signatureExt     = ".sig"
	scalarSize       = domain.SignatureBlockSize / 2

	pemEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	pemPublicKey           = "PUBLIC KEY"
)

// keyEncryption is PBES2 with PBKDF2-HMAC-SHA256 and AES-256-CBC. pkcs8
// only implements SHA-1 and SHA-256 for the PBKDF2 HMAC.
var keyEncryption = &pkcs8.Opts{
	Cipher: pkcs8.AES256CBC,
	KDFOpts: pkcs8.PBKDF2Opts{
		SaltSize:       16,
		IterationCount: 131072,
		HMACHash:       crypto.SHA256,
	},
}

// SignatureService creates signing identities and detached signatures.
type SignatureService struct {
	store        ResourceStore
	keyDir       string
	signatureDir string
	pubkeyBase   string
	logger       domain.Logger
}

// NewSignatureService creates a signature service. Public keys are
// published under pubkeyBase, which may be a URL prefix or a directory
// path ending in a separator.
func NewSignatureService(store ResourceStore, keyDir, signatureDir, pubkeyBase string, logger domain.Logger) *SignatureService {
	return &SignatureService{
		store:        store,
		keyDir:       keyDir,
		signatureDir: signatureDir,
		pubkeyBase:   pubkeyBase,
		logger:       logger,
	}
}

// PublicKeyLocation is where the public key of identity is published.
func (s *SignatureService) PublicKeyLocation(identity string) string {
	return s.pubkeyBase + identity + ".pem"
}

// PrivateKeyPath is the local file holding the private key of identity.
func (s *SignatureService) PrivateKeyPath(identity string) string {
	return filepath.Join(s.keyDir, strings.ReplaceAll(identity, " ", "_")+privateKeySuffix)
}

// SignaturePath is the artifact path for identity signing pdfPath.
func (s *SignatureService) SignaturePath(pdfPath, identity string) string {
	doc := strings.TrimSuffix(filepath.Base(pdfPath), ".pdf")
	return filepath.Join(s.signatureDir, doc, identity+signatureExt)
}

// SignerFromPrivateKeyPath recovers the identity from a private key file name.
func SignerFromPrivateKeyPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), privateKeySuffix)
}

// SignerFromSignaturePath recovers the claimed identity from an artifact name.
func SignerFromSignaturePath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), signatureExt)
}

// GenerateKeypair creates a P-256 key pair for identity. The private key is
// stored encrypted with passphrase; the public key is published to
// destination. A failed upload to a URL is logged and reported through
// KeyPair.Published.
func (s *SignatureService) GenerateKeypair(ctx context.Context, destination, identity, passphrase string) (domain.KeyPair, error) {
	if strings.TrimSpace(identity) == "" {
		return domain.KeyPair{}, domain.NewValidationError("identity", "identity is required")
	}
	if strings.TrimSpace(passphrase) == "" {
		return domain.KeyPair{}, domain.NewValidationError("passphrase", "passphrase is required")
	}
	if destination == "" {
		destination = s.PublicKeyLocation(identity)
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("generate key: %w", err)
	}
	der, err := pkcs8.MarshalPrivateKey(priv, []byte(passphrase), keyEncryption)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("encrypt private key: %w", err)
	}
	privPath := s.PrivateKeyPath(identity)
	if err := os.MkdirAll(filepath.Dir(privPath), 0o700); err != nil {
		return domain.KeyPair{}, fmt.Errorf("create key directory: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: pemEncryptedPrivateKey, Bytes: der})
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return domain.KeyPair{}, fmt.Errorf("write private key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("encode public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: pubDER})

	pair := domain.KeyPair{
		Identity:          identity,
		PublicKeyLocation: destination,
		PrivateKeyPath:    privPath,
		Published:         true,
	}
	if err := s.store.Put(ctx, destination, pubPEM); err != nil {
		if !IsURL(destination) {
			return domain.KeyPair{}, fmt.Errorf("write public key: %w", err)
		}
		s.logger.Warn("Public key upload failed", "identity", identity, "destination", destination, "error", err)
		pair.Published = false
	}
	s.logger.Info("Signer created", "identity", identity, "published", pair.Published)
	return pair, nil
}

// Sign writes a detached signature of pdfPath by identity to
// signaturePath: the signature of the file hash followed by the signature
// of the identity hash, each as fixed size r||s.
func (s *SignatureService) Sign(signaturePath, pdfPath, identity, passphrase, privateKeyPath string) (string, error) {
	priv, err := loadPrivateKey(privateKeyPath, passphrase)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pdfPath, err)
	}

	dataHash := sha256.Sum256(data)
	nameHash := sha256.Sum256([]byte(identity))
	dataSig, err := signBlock(priv, dataHash[:])
	if err != nil {
		return "", err
	}
	nameSig, err := signBlock(priv, nameHash[:])
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(signaturePath), 0o755); err != nil {
		return "", fmt.Errorf("create signature directory: %w", err)
	}
	if err := os.WriteFile(signaturePath, append(dataSig, nameSig...), 0o644); err != nil {
		return "", fmt.Errorf("write signature: %w", err)
	}
	s.logger.Info("Document signed", "identity", identity, "pdf", pdfPath, "signature", signaturePath)
	return fmt.Sprintf("PDF signature by %s was stored in file %q successfully.", identity, signaturePath), nil
}

// Verify checks a detached signature against pdfPath and the public key
// found at publicKeySource. Failed checks are returned as warnings; the
// error is reserved for I/O and key problems.
func (s *SignatureService) Verify(ctx context.Context, signaturePath, pdfPath, publicKeySource, claimedIdentity string) (domain.Verification, error) {
	artifact, err := os.ReadFile(signaturePath)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("read signature: %w", err)
	}
	if len(artifact) != domain.SignatureArtifactSize {
		return domain.Verification{Warnings: []string{domain.MsgArtifactTampered}}, nil
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("read %s: %w", pdfPath, err)
	}
	raw, err := s.store.Get(ctx, publicKeySource)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("load public key: %w", err)
	}
	pub, err := parsePublicKey(raw)
	if err != nil {
		return domain.Verification{}, err
	}

	dataHash := sha256.Sum256(data)
	nameHash := sha256.Sum256([]byte(claimedIdentity))

	var warnings []string
	if !verifyBlock(pub, nameHash[:], artifact[domain.SignatureBlockSize:]) {
		warnings = append(warnings, domain.MsgSignerHashInvalid)
	}
	if !verifyBlock(pub, dataHash[:], artifact[:domain.SignatureBlockSize]) {
		warnings = append(warnings, domain.MsgDataHashInvalid)
	}
	if len(warnings) > 0 {
		return domain.Verification{Warnings: warnings}, nil
	}
	return domain.Verification{Valid: true, Status: domain.MsgSignatureValid}, nil
}

// pemOrDER returns the payload of a PEM block, or data itself when it is
// not PEM encoded.
func pemOrDER(data []byte) []byte {
	if block, _ := pem.Decode(data); block != nil {
		return block.Bytes
	}
	return data
}

func loadPrivateKey(path, passphrase string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	priv, err := pkcs8.ParsePKCS8PrivateKeyECDSA(pemOrDER(raw), []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("%w: wrong passphrase or malformed private key: %v", domain.ErrInvalidKey, err)
	}
	return priv, nil
}

func parsePublicKey(raw []byte) (*ecdsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(pemOrDER(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T, not ECDSA", domain.ErrInvalidKey, key)
	}
	return pub, nil
}

// signBlock signs digest deterministically and returns r||s.
func signBlock(priv *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	der, err := priv.Sign(nil, digest, crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	var r, sc big.Int
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadASN1Integer(&r) || !seq.ReadASN1Integer(&sc) || !seq.Empty() {
		return nil, errors.New("sign: malformed signature")
	}
	block := make([]byte, domain.SignatureBlockSize)
	r.FillBytes(block[:scalarSize])
	sc.FillBytes(block[scalarSize:])
	return block, nil
}

// verifyBlock checks an r||s block over digest.
func verifyBlock(pub *ecdsa.PublicKey, digest, block []byte) bool {
	r := new(big.Int).SetBytes(block[:scalarSize])
	sc := new(big.Int).SetBytes(block[scalarSize:])
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(sc)
	})
	der, err := b.Bytes()
	if err != nil {
		return false
	}
	return ecdsa.VerifyASN1(pub, digest, der)
}
