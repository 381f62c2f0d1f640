package controller

// ClientContext is the per-session state of a command shell.
type ClientContext struct {
	Group string
}

func NewClientContext(group string) *ClientContext {
	return &ClientContext{Group: group}
}

func (ctx *ClientContext) SetGroup(groupName string) {
	ctx.Group = groupName
}
