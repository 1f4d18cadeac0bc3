package accounts

// Handlers bundles the command handlers served over HTTP
type Handlers struct {
	Register *RegisterAccountHandler
	Verify   *VerifyAccountHandler
	Status   *BulkStatusHandler
	Delete   *DeleteAccountsHandler
	Purge    *PurgeUnverifiedHandler
	List     *ListAccountsHandler
}

// HandlersConfig carries the collaborators shared by the handlers
type HandlersConfig struct {
	Repo             RepositoryManager
	StateMachine     AccountStateMachine
	Hasher           PasswordHasher
	Notifier         Notifier
	ClientURL        string
	DeterministicIDs bool
}

// NewHandlers builds every command handler from cfg
func NewHandlers(cfg HandlersConfig, opts ...CommandOption) Handlers {
	sm := cfg.StateMachine
	if sm == nil {
		sm = NewAccountStateMachine(cfg.Repo.Accounts())
	}

	return Handlers{
		Register: NewRegisterAccountHandler(cfg.Repo, cfg.Hasher, cfg.Notifier, cfg.ClientURL, opts...).
			WithDeterministicIDs(cfg.DeterministicIDs),
		Verify: NewVerifyAccountHandler(cfg.Repo, sm, opts...),
		Status: NewBulkStatusHandler(cfg.Repo, sm, opts...),
		Delete: NewDeleteAccountsHandler(cfg.Repo, opts...),
		Purge:  NewPurgeUnverifiedHandler(cfg.Repo, opts...),
		List:   NewListAccountsHandler(cfg.Repo, opts...),
	}
}
