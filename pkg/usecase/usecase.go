package usecase

import (
	"time"

	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/utils/clock"
)

type UseCases struct {
	repo    interfaces.Repository
	slack   interfaces.SlackClient
	clock   clock.Clock
	invoker *Invoker

	Resolver  *Resolver
	Listener  *Listener
	Rolodex   *RolodexUseCase
	Alias     *AliasUseCase
	Messaging *MessagingUseCase
}

type Option func(*UseCases)

// WithSlackClient enables the operations that reach the remote API
func WithSlackClient(client interfaces.SlackClient) Option {
	return func(uc *UseCases) {
		uc.slack = client
	}
}

// WithClock replaces the clock used by the listener and the invoker
func WithClock(c clock.Clock) Option {
	return func(uc *UseCases) {
		uc.clock = c
	}
}

// WithInvoker replaces the rate limit handling of every remote call
func WithInvoker(inv *Invoker) Option {
	return func(uc *UseCases) {
		uc.invoker = inv
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:  repo,
		clock: clock.Real(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.invoker == nil {
		uc.invoker = NewInvoker(WithInvokerClock(uc.clock))
	}

	uc.Resolver = NewResolver(repo, uc.slack, uc.invoker)
	uc.Listener = NewListener(uc.slack, uc.invoker, uc.clock)
	uc.Rolodex = NewRolodexUseCase(repo, uc.slack, uc.invoker)
	uc.Alias = NewAliasUseCase(repo)
	uc.Messaging = NewMessagingUseCase(uc.slack, uc.Resolver, uc.invoker)

	return uc
}

// Now returns the current time of the configured clock
func (uc *UseCases) Now() time.Time {
	return uc.clock.Now()
}
