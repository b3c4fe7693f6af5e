package store

import "strings"

// Store keeps a small key/value cache and sends notification mail.
type Store struct {
	cacheData map[string]string
	cacheHits int
	mailHost  string
	mailSent  int
}

func NewStore(host string) *Store {
	return &Store{cacheData: map[string]string{}, mailHost: host}
}

func (s *Store) CacheGet(k string) string {
	s.cacheHits++
	return s.cacheData[k]
}

func (s *Store) CachePut(k, v string) { s.cacheData[k] = v }

func (s *Store) CacheDrop(k string) { delete(s.cacheData, k) }

// MailSend formats the address.
func (s *Store) MailSend(to string) string {
	s.mailSent++
	return s.mailHost + ":" + strings.TrimSpace(to)
}

func (s *Store) MailReset() { s.mailSent = 0 }

func (s *Store) MailTotal() int { return s.mailSent }

func Describe(kind int) string {
	if kind == 0 {
		return "none"
	} else if kind == 1 {
		return "one"
	} else if kind == 2 {
		return "two"
	} else {
		return "many"
	}
}
