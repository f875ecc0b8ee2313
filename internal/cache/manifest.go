package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// ManifestInputs is everything the working-directory manifest hash must
// summarize (spec.md §3): inventory fingerprints, the effective source
// ordering, generator identity/version, the applicable document set, and
// template variable values. Two preparations with identical ManifestInputs
// must produce byte-identical working directories.
type ManifestInputs struct {
	Generator        domain.GeneratorId
	GeneratorVersion string
	SourceOrder      []domain.SourceKind
	InventoryDigest  string
	DocumentDigests  []string // one per applicable customization document, e.g. its ID+content hash
	// ResolvedTemplateDigests is one "name:bodyHash" entry per template the
	// resolver produced for this spec. It folds the customization stack's
	// actual effect on content into the hash, so a document whose
	// conditions flip true/false (without changing what's on disk) never
	// forces an unnecessary rebuild, while any content change always does.
	ResolvedTemplateDigests []string
	TemplateVariables       map[string]string
}

// ComputeManifestHash folds inputs into the single hash line C7 writes to
// .working-dir-cache and C8 uses to short-circuit rebuilds.
func ComputeManifestHash(in ManifestInputs) string {
	h := sha256.New()
	h.Write([]byte("generator="))
	h.Write([]byte(in.Generator))
	h.Write([]byte{0})
	h.Write([]byte("version="))
	h.Write([]byte(in.GeneratorVersion))
	h.Write([]byte{0})

	h.Write([]byte("sources="))
	for _, s := range in.SourceOrder {
		h.Write([]byte(s.String()))
		h.Write([]byte{','})
	}
	h.Write([]byte{0})

	h.Write([]byte("inventory="))
	h.Write([]byte(in.InventoryDigest))
	h.Write([]byte{0})

	docs := append([]string(nil), in.DocumentDigests...)
	sort.Strings(docs)
	h.Write([]byte("documents="))
	for _, d := range docs {
		h.Write([]byte(d))
		h.Write([]byte{','})
	}
	h.Write([]byte{0})

	resolved := append([]string(nil), in.ResolvedTemplateDigests...)
	sort.Strings(resolved)
	h.Write([]byte("resolved="))
	for _, d := range resolved {
		h.Write([]byte(d))
		h.Write([]byte{','})
	}
	h.Write([]byte{0})

	keys := make([]string, 0, len(in.TemplateVariables))
	for k := range in.TemplateVariables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h.Write([]byte("vars="))
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(in.TemplateVariables[k]))
		h.Write([]byte{','})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// DigestBytes returns the hex SHA-256 digest of b, used to fingerprint
// inventory sources (e.g. a library archive's own bytes) independent of
// any single template body.
func DigestBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
