package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Klingon-tech/shardwallet/internal/log"
)

// walletExt is the file extension of wallet files. Shard files append the
// one-based shard number: name.key.1, name.key.2, ...
const walletExt = ".key"

// Keystore manages encrypted wallet files in one directory.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// Dir returns the keystore directory.
func (ks *Keystore) Dir() string {
	return ks.path
}

// walletPath returns the file path for a basic wallet by name.
func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+walletExt)
}

// shardPath returns the file path of shard i (one-based) of a sharded wallet.
func (ks *Keystore) shardPath(name string, i int) string {
	return ks.walletPath(name) + "." + strconv.Itoa(i)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid wallet name %q", name)
	}
	return nil
}

// Save writes an encrypted wallet as name.key. An existing wallet of the same
// name is only replaced when force is set.
func (ks *Keystore) Save(name string, w Wallet, force bool) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := Marshal(w)
	if err != nil {
		return err
	}
	if err := ks.prepare(name, force); err != nil {
		return err
	}
	path := ks.walletPath(name)
	if err := writeFile(path, data); err != nil {
		return err
	}
	log.Keystore.Info().
		Str("wallet", name).
		Str("kind", w.Kind().String()).
		Str("address", w.PublicKey().String()).
		Msg("Wallet saved")
	return nil
}

// SaveShards writes each shard record to its own file, name.key.1 through
// name.key.N.
func (ks *Keystore) SaveShards(name string, shards []*EncryptedSharded, force bool) error {
	if err := checkName(name); err != nil {
		return err
	}
	if len(shards) == 0 {
		return errors.New("no shards to save")
	}
	files := make([][]byte, len(shards))
	for i, s := range shards {
		data, err := Marshal(s)
		if err != nil {
			return fmt.Errorf("shard %d: %w", i+1, err)
		}
		files[i] = data
	}
	if err := ks.prepare(name, force); err != nil {
		return err
	}
	for i, data := range files {
		if err := writeFile(ks.shardPath(name, i+1), data); err != nil {
			return err
		}
	}
	log.Keystore.Info().
		Str("wallet", name).
		Int("shards", len(shards)).
		Str("address", shards[0].PublicKey().String()).
		Msg("Wallet shards saved")
	return nil
}

// prepare refuses to overwrite an existing wallet unless force is set, in
// which case the old files are removed first.
func (ks *Keystore) prepare(name string, force bool) error {
	paths, err := ks.files(name)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	if !force {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}
	log.Keystore.Warn().Str("wallet", name).Msg("Overwriting existing wallet")
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("remove old wallet file: %w", err)
		}
	}
	return nil
}

// Load reads every file of a wallet: one for a basic wallet, one per shard
// for a sharded wallet.
func (ks *Keystore) Load(name string) ([]Wallet, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	paths, err := ks.files(name)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	wallets := make([]Wallet, 0, len(paths))
	for _, p := range paths {
		w, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	log.Keystore.Debug().Str("wallet", name).Int("files", len(wallets)).Msg("Wallet loaded")
	return wallets, nil
}

// LoadFile reads a single wallet file from any path.
func LoadFile(path string) (Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	w, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse wallet %s: %w", filepath.Base(path), err)
	}
	return w, nil
}

// Exists reports whether any file of the named wallet exists.
func (ks *Keystore) Exists(name string) bool {
	paths, err := ks.files(name)
	return err == nil && len(paths) > 0
}

// List returns the sorted names of all wallets in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := walletName(e.Name())
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes all files of a wallet.
func (ks *Keystore) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	paths, err := ks.files(name)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("delete wallet: %w", err)
		}
	}
	log.Keystore.Info().Str("wallet", name).Int("files", len(paths)).Msg("Wallet deleted")
	return nil
}

// files returns the paths of the basic file and all shard files of name,
// shards ordered by number.
func (ks *Keystore) files(name string) ([]string, error) {
	var paths []string
	base := ks.walletPath(name)
	if _, err := os.Stat(base); err == nil {
		paths = append(paths, base)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat wallet: %w", err)
	}

	matches, err := filepath.Glob(escapeGlob(base) + ".*")
	if err != nil {
		return nil, fmt.Errorf("list shards: %w", err)
	}
	type shardFile struct {
		n    int
		path string
	}
	var shards []shardFile
	for _, m := range matches {
		n, err := strconv.Atoi(strings.TrimPrefix(m, base+"."))
		if err != nil || n < 1 {
			continue
		}
		shards = append(shards, shardFile{n, m})
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i].n < shards[j].n })
	for _, s := range shards {
		paths = append(paths, s.path)
	}
	return paths, nil
}

// walletName extracts the wallet name from a file name, or reports false if
// the file is not a wallet file.
func walletName(file string) (string, bool) {
	if name, ok := strings.CutSuffix(file, walletExt); ok && name != "" {
		return name, true
	}
	i := strings.LastIndex(file, walletExt+".")
	if i <= 0 {
		return "", false
	}
	if n, err := strconv.Atoi(file[i+len(walletExt)+1:]); err != nil || n < 1 {
		return "", false
	}
	return file[:i], true
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}
