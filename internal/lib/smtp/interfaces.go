package smtp

import "io"

// Client минимальный контракт SMTP-клиента, достаточный для отправки письма.
// Выделен в интерфейс, чтобы в тестах подменять *smtp.Client.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}
