package policy

// TeamsPolicy watches Microsoft Teams.
type TeamsPolicy struct{}

// NewTeamsPolicy creates the Teams policy.
func NewTeamsPolicy() *TeamsPolicy {
	return &TeamsPolicy{}
}

func (p *TeamsPolicy) ID() string {
	return "teams"
}

func (p *TeamsPolicy) Name() string {
	return "Microsoft Teams"
}

func (p *TeamsPolicy) ProcessPatterns() []string {
	return []string{
		"ms-teams",
		"MSTeams",
		"Microsoft Teams",
		"teams-for-linux",
	}
}

var _ AppPolicy = (*TeamsPolicy)(nil)
