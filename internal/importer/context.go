package importer

// resolutionContext holds the four sourceId->targetId maps of one
// executor run. Entries are write-once: the first binding for a
// sourceId wins and later bindings are ignored, so every phase of the
// run resolves a sourceId to the same target.
type resolutionContext struct {
	users        map[string]string
	categories   map[string]string
	propositions map[string]string
	files        map[string]string
}

func newResolutionContext() *resolutionContext {
	return &resolutionContext{
		users:        make(map[string]string),
		categories:   make(map[string]string),
		propositions: make(map[string]string),
		files:        make(map[string]string),
	}
}

func bind(m map[string]string, sourceID, targetID string) {
	if sourceID == "" || targetID == "" {
		return
	}
	if _, exists := m[sourceID]; exists {
		return
	}
	m[sourceID] = targetID
}

func (c *resolutionContext) bindUser(sourceID, targetID string)        { bind(c.users, sourceID, targetID) }
func (c *resolutionContext) bindCategory(sourceID, targetID string)    { bind(c.categories, sourceID, targetID) }
func (c *resolutionContext) bindProposition(sourceID, targetID string) { bind(c.propositions, sourceID, targetID) }
func (c *resolutionContext) bindFile(sourceID, targetID string)        { bind(c.files, sourceID, targetID) }

func (c *resolutionContext) userID(sourceID string) (string, bool) {
	id, ok := c.users[sourceID]
	return id, ok
}

func (c *resolutionContext) categoryID(sourceID string) (string, bool) {
	id, ok := c.categories[sourceID]
	return id, ok
}

func (c *resolutionContext) propositionID(sourceID string) (string, bool) {
	id, ok := c.propositions[sourceID]
	return id, ok
}

func (c *resolutionContext) fileID(sourceID string) (string, bool) {
	id, ok := c.files[sourceID]
	return id, ok
}
