package server

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var errNoCertificate = errors.New("no TLS certificate loaded")

// certStore serves the current key pair and swaps it when the files on disk change.
type certStore struct {
	certPath, keyPath string

	mu   sync.RWMutex
	cert *tls.Certificate
}

func newCertStore(certPath, keyPath string) *certStore {
	return &certStore{certPath: certPath, keyPath: keyPath}
}

func (s *certStore) load() error {
	cert, err := tls.LoadX509KeyPair(s.certPath, s.keyPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cert = &cert
	s.mu.Unlock()
	return nil
}

func (s *certStore) get(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cert == nil {
		return nil, errNoCertificate
	}
	return s.cert, nil
}

func (s *certStore) config() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: s.get,
	}
}

// watch reloads on write, create or rename until ctx is done.
// A failed reload keeps the previous certificate.
func (s *certStore) watch(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		zap.L().Error("tls watcher unavailable", zap.Error(err))
		return
	}
	defer w.Close()

	for _, p := range []string{s.certPath, s.keyPath} {
		if err := w.Add(p); err != nil {
			zap.L().Warn("tls watcher cannot follow file", zap.String("path", p), zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := s.load(); err != nil {
				zap.L().Error("tls reload failed", zap.String("file", ev.Name), zap.Error(err))
				continue
			}
			zap.L().Info("tls certificate reloaded", zap.String("file", ev.Name))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			zap.L().Error("tls watcher error", zap.Error(err))
		}
	}
}
