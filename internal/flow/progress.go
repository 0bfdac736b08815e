package flow

// Progress is the busy signal bound to an outstanding submission.
type Progress struct {
	active    bool
	listeners []func(active bool)
}

// Active reports whether a submission is outstanding.
func (p *Progress) Active() bool {
	return p.active
}

// OnChange registers a callback invoked on every transition.
func (p *Progress) OnChange(fn func(active bool)) {
	p.listeners = append(p.listeners, fn)
}

func (p *Progress) activate() {
	p.set(true)
}

func (p *Progress) deactivate() {
	p.set(false)
}

func (p *Progress) set(active bool) {
	if p.active == active {
		return
	}
	p.active = active
	for _, fn := range p.listeners {
		fn(active)
	}
}
