package entities

import (
	"time"

	"atelier/domain/config"
	"atelier/domain/core/valueobjects"
	"atelier/domain/events"
	"atelier/domain/scaffold"
	pkgerrors "atelier/pkg/errors"
)

// NodeType classifies what kind of project a node holds
type NodeType string

const (
	NodeTypeMacOSApp  NodeType = "macos_app"
	NodeTypeIPhoneApp NodeType = "iphone_app"
	NodeTypeWebsite   NodeType = "website"
	NodeTypeBackend   NodeType = "cloud_backend"
	NodeTypeCustom    NodeType = "custom"
)

// ValidNodeType reports whether t is a known node type.
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeTypeMacOSApp, NodeTypeIPhoneApp, NodeTypeWebsite, NodeTypeBackend, NodeTypeCustom:
		return true
	}
	return false
}

// DefaultLanguageFor returns the catalog language a node type starts
// with when the user does not pick one.
func DefaultLanguageFor(t NodeType) scaffold.Language {
	switch t {
	case NodeTypeMacOSApp, NodeTypeIPhoneApp:
		return scaffold.LanguageSwift
	case NodeTypeWebsite:
		return scaffold.LanguageJavaScript
	case NodeTypeBackend:
		return scaffold.LanguagePython
	default:
		return scaffold.LanguagePython
	}
}

// Node is one user-defined sub-project: its own multi-file codebase,
// language, canvas position and outgoing connections. All external
// references to a node go through its id; nothing outside the
// workspace store may hold a positional index into its files.
type Node struct {
	id              valueobjects.NodeID
	name            string
	nodeType        NodeType
	language        scaffold.Language
	position        valueobjects.Position
	files           []*ProjectFile
	selectedFileID  valueobjects.FileID
	connections     []valueobjects.NodeID
	projectPath     string
	environmentPath string
	createdAt       time.Time
	updatedAt       time.Time

	events []events.DomainEvent
}

// NewNode creates a node pre-populated with exactly one main file from
// the scaffold catalog. A node never exists with an empty file set.
func NewNode(name string, nodeType NodeType, language scaffold.Language, position valueobjects.Position, cfg *config.DomainConfig) (*Node, error) {
	return NewNodeWithID(valueobjects.NewNodeID(), name, nodeType, language, position, cfg)
}

// NewNodeWithID creates a node under a caller-allocated id. Ids still
// come from NewNodeID and are never recycled within a session.
func NewNodeWithID(id valueobjects.NodeID, name string, nodeType NodeType, language scaffold.Language, position valueobjects.Position, cfg *config.DomainConfig) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID is required")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if name == "" {
		name = cfg.DefaultNodeName
	}
	if len(name) > cfg.MaxNodeNameLength {
		return nil, pkgerrors.NewValidationError("node name exceeds the maximum length")
	}
	if !ValidNodeType(nodeType) {
		return nil, pkgerrors.NewValidationError("unknown node type: " + string(nodeType))
	}
	entry, ok := scaffold.Lookup(language)
	if !ok {
		return nil, pkgerrors.NewValidationError("unknown language: " + string(language))
	}

	mainPath, err := valueobjects.NewRelPath(entry.MainFilePath)
	if err != nil {
		return nil, err
	}
	mainFile, err := NewProjectFile(mainPath, entry.StarterFor(name), language)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	node := &Node{
		id:             id,
		name:           name,
		nodeType:       nodeType,
		language:       language,
		position:       position,
		files:          []*ProjectFile{mainFile},
		selectedFileID: mainFile.ID(),
		connections:    []valueobjects.NodeID{},
		createdAt:      now,
		updatedAt:      now,
		events:         []events.DomainEvent{},
	}

	node.addEvent(events.NewNodeCreated(node.id, name, string(nodeType), string(language), now))

	return node, nil
}

// ReconstructNode rehydrates a node from persisted data. Files must be
// attached in their original order and include at least one entry.
func ReconstructNode(
	id valueobjects.NodeID,
	name string,
	nodeType NodeType,
	language scaffold.Language,
	position valueobjects.Position,
	files []*ProjectFile,
	selectedFileID valueobjects.FileID,
	connections []valueobjects.NodeID,
	projectPath, environmentPath string,
	createdAt, updatedAt time.Time,
) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID is required")
	}
	if len(files) == 0 {
		return nil, pkgerrors.NewValidationError("node must have at least one file")
	}
	node := &Node{
		id:              id,
		name:            name,
		nodeType:        nodeType,
		language:        language,
		position:        position,
		files:           append([]*ProjectFile{}, files...),
		connections:     append([]valueobjects.NodeID{}, connections...),
		projectPath:     projectPath,
		environmentPath: environmentPath,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		events:          []events.DomainEvent{},
	}
	if !selectedFileID.IsZero() {
		if _, ok := node.File(selectedFileID); ok {
			node.selectedFileID = selectedFileID
		}
	}
	return node, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Name returns the display label
func (n *Node) Name() string {
	return n.name
}

// Type returns the node's project kind
func (n *Node) Type() NodeType {
	return n.nodeType
}

// Language returns the scaffold catalog language
func (n *Node) Language() scaffold.Language {
	return n.language
}

// Position returns the canvas position
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// ProjectPath returns the on-disk root, "" before materialization
func (n *Node) ProjectPath() string {
	return n.projectPath
}

// EnvironmentPath returns the isolated runtime environment path, ""
// for compiled languages
func (n *Node) EnvironmentPath() string {
	return n.environmentPath
}

// CreatedAt returns when the node was created
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the node was last mutated
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}

// Files returns the ordered file collection.
func (n *Node) Files() []*ProjectFile {
	files := make([]*ProjectFile, len(n.files))
	copy(files, n.files)
	return files
}

// FileCount returns how many files the node owns
func (n *Node) FileCount() int {
	return len(n.files)
}

// File resolves a file by identity.
func (n *Node) File(id valueobjects.FileID) (*ProjectFile, bool) {
	for _, f := range n.files {
		if f.ID().Equals(id) {
			return f, true
		}
	}
	return nil, false
}

// FileByPath resolves a file by its project-relative path.
func (n *Node) FileByPath(path valueobjects.RelPath) (*ProjectFile, bool) {
	for _, f := range n.files {
		if f.Path().Equals(path) {
			return f, true
		}
	}
	return nil, false
}

// MainFile returns the file at the catalog's canonical main path,
// falling back to the first file.
func (n *Node) MainFile() *ProjectFile {
	if entry, ok := scaffold.Lookup(n.language); ok {
		if mainPath, err := valueobjects.NewRelPath(entry.MainFilePath); err == nil {
			if f, ok := n.FileByPath(mainPath); ok {
				return f
			}
		}
	}
	return n.files[0]
}

// SelectedFileID returns the selected file reference, zero when unset
func (n *Node) SelectedFileID() valueobjects.FileID {
	return n.selectedFileID
}

// SelectedFile resolves the current file selection.
func (n *Node) SelectedFile() (*ProjectFile, bool) {
	if n.selectedFileID.IsZero() {
		return nil, false
	}
	return n.File(n.selectedFileID)
}

// SelectFile moves the file selection. The target must exist; a stale
// id is reported, never applied.
func (n *Node) SelectFile(id valueobjects.FileID) error {
	if _, ok := n.File(id); !ok {
		return pkgerrors.NewNotFoundError("file")
	}
	if n.selectedFileID.Equals(id) {
		return nil
	}
	n.selectedFileID = id
	n.updatedAt = time.Now()
	n.addEvent(events.NewSelectionChanged(n.id, id, n.updatedAt))
	return nil
}

// AddFile creates a file at the given path.
func (n *Node) AddFile(path valueobjects.RelPath, language scaffold.Language, content string, cfg *config.DomainConfig) (*ProjectFile, error) {
	return n.AddFileWithID(valueobjects.NewFileID(), path, language, content, cfg)
}

// AddFileWithID creates a file at the given path under a
// caller-allocated id.
func (n *Node) AddFileWithID(id valueobjects.FileID, path valueobjects.RelPath, language scaffold.Language, content string, cfg *config.DomainConfig) (*ProjectFile, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if _, exists := n.FileByPath(path); exists {
		return nil, pkgerrors.NewConflictError("a file already exists at " + path.String())
	}
	if len(n.files) >= cfg.MaxFilesPerNode {
		return nil, pkgerrors.NewValidationError("maximum files per node reached")
	}

	file, err := NewProjectFileWithID(id, path, content, language)
	if err != nil {
		return nil, err
	}

	n.files = append(n.files, file)
	n.updatedAt = time.Now()
	n.addEvent(events.NewFileAdded(n.id, file.ID(), file.Path(), false, n.updatedAt))

	return file, nil
}

// RemoveFile removes a file by identity. Removing the last file
// regenerates a fresh main file from the catalog in the same mutation:
// the file collection is never observed empty. The second return value
// is the regenerated file, nil when no regeneration happened.
func (n *Node) RemoveFile(id valueobjects.FileID) (*ProjectFile, *ProjectFile, error) {
	removed, ok := n.File(id)
	if !ok {
		return nil, nil, pkgerrors.NewNotFoundError("file")
	}

	kept := make([]*ProjectFile, 0, len(n.files)-1)
	for _, f := range n.files {
		if !f.ID().Equals(id) {
			kept = append(kept, f)
		}
	}

	// Build the replacement main file before touching any state, so a
	// catalog failure leaves the node and its event list untouched.
	var regenerated *ProjectFile
	if len(kept) == 0 {
		fresh, err := n.buildMainFile()
		if err != nil {
			return nil, nil, err
		}
		regenerated = fresh
	}

	n.files = kept
	n.updatedAt = time.Now()
	n.addEvent(events.NewFileRemoved(n.id, removed.ID(), removed.Path(), n.updatedAt))
	if regenerated != nil {
		n.files = append(n.files, regenerated)
		n.addEvent(events.NewFileAdded(n.id, regenerated.ID(), regenerated.Path(), true, n.updatedAt))
	}

	// A selection pointing at the removed file is reassigned to the
	// main file so the editor always has something to show.
	if n.selectedFileID.Equals(id) {
		n.selectedFileID = n.MainFile().ID()
	}

	return removed, regenerated, nil
}

// buildMainFile creates a fresh main file from the catalog for the
// node's current language without attaching it.
func (n *Node) buildMainFile() (*ProjectFile, error) {
	entry, ok := scaffold.Lookup(n.language)
	if !ok {
		return nil, pkgerrors.NewInternalError("no catalog entry for language " + string(n.language))
	}
	mainPath, err := valueobjects.NewRelPath(entry.MainFilePath)
	if err != nil {
		return nil, err
	}
	return NewProjectFile(mainPath, entry.StarterFor(n.name), n.language)
}

// UpdateFileContent replaces a file's in-memory content.
func (n *Node) UpdateFileContent(id valueobjects.FileID, content string, cfg *config.DomainConfig) error {
	file, ok := n.File(id)
	if !ok {
		return pkgerrors.NewNotFoundError("file")
	}
	if err := file.UpdateContent(content, cfg); err != nil {
		return err
	}
	n.updatedAt = time.Now()
	n.addEvent(events.NewFileContentUpdated(n.id, id, len(content), n.updatedAt))
	return nil
}

// RenameFile renames a file in memory, preserving its directory
// prefix. It returns the old and new paths so the caller can attempt
// the on-disk rename and roll back with RestoreFilePath on failure.
func (n *Node) RenameFile(id valueobjects.FileID, newName string) (oldPath, newPath valueobjects.RelPath, err error) {
	file, ok := n.File(id)
	if !ok {
		return valueobjects.RelPath{}, valueobjects.RelPath{}, pkgerrors.NewNotFoundError("file")
	}

	oldPath = file.Path()
	candidate, err := oldPath.WithName(newName)
	if err != nil {
		return valueobjects.RelPath{}, valueobjects.RelPath{}, err
	}
	if candidate.Equals(oldPath) {
		return oldPath, oldPath, nil
	}
	if _, exists := n.FileByPath(candidate); exists {
		return valueobjects.RelPath{}, valueobjects.RelPath{}, pkgerrors.NewConflictError("a file already exists at " + candidate.String())
	}

	if err := file.Rename(newName); err != nil {
		return valueobjects.RelPath{}, valueobjects.RelPath{}, err
	}
	n.updatedAt = time.Now()
	n.addEvent(events.NewFileRenamed(n.id, id, oldPath, file.Path(), n.updatedAt))
	return oldPath, file.Path(), nil
}

// RestoreFilePath rolls a rename back after a failed disk operation,
// so in-memory state and disk state do not diverge.
func (n *Node) RestoreFilePath(id valueobjects.FileID, path valueobjects.RelPath) {
	if file, ok := n.File(id); ok {
		_ = file.Rename(path.Name())
		n.updatedAt = time.Now()
	}
}

// ConnectTo adds a directed connection to another node. Self-loops and
// duplicates are silent no-ops: the connection set never contains
// either, and asking for one is not an error.
func (n *Node) ConnectTo(targetID valueobjects.NodeID, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if n.id.Equals(targetID) || n.ConnectedTo(targetID) {
		return nil
	}
	if len(n.connections) >= cfg.MaxConnectionsPerNode {
		return pkgerrors.NewValidationError("maximum connections per node reached")
	}

	n.connections = append(n.connections, targetID)
	n.updatedAt = time.Now()
	n.addEvent(events.NewNodesConnected(n.id, targetID, n.updatedAt))
	return nil
}

// DisconnectFrom removes a directed connection. Removing an absent
// connection is a no-op; the return value reports whether anything
// changed.
func (n *Node) DisconnectFrom(targetID valueobjects.NodeID) bool {
	kept := n.connections[:0]
	found := false
	for _, c := range n.connections {
		if c.Equals(targetID) {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return false
	}
	n.connections = kept
	n.updatedAt = time.Now()
	n.addEvent(events.NewNodesDisconnected(n.id, targetID, n.updatedAt))
	return true
}

// ConnectedTo reports whether a directed connection to targetID exists
func (n *Node) ConnectedTo(targetID valueobjects.NodeID) bool {
	for _, c := range n.connections {
		if c.Equals(targetID) {
			return true
		}
	}
	return false
}

// Connections returns the outgoing connection set.
func (n *Node) Connections() []valueobjects.NodeID {
	conns := make([]valueobjects.NodeID, len(n.connections))
	copy(conns, n.connections)
	return conns
}

// MoveTo moves the node to a new canvas position
func (n *Node) MoveTo(position valueobjects.Position) {
	if position.Equals(n.position) {
		return
	}
	old := n.position
	n.position = position
	n.updatedAt = time.Now()
	n.addEvent(events.NewNodeMoved(n.id, old, position, n.updatedAt))
}

// Rename changes the display label
func (n *Node) Rename(name string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if name == "" {
		return pkgerrors.NewValidationError("node name cannot be empty")
	}
	if len(name) > cfg.MaxNodeNameLength {
		return pkgerrors.NewValidationError("node name exceeds the maximum length")
	}
	if name == n.name {
		return nil
	}
	old := n.name
	n.name = name
	n.updatedAt = time.Now()
	n.addEvent(events.NewNodeRenamed(n.id, old, name, n.updatedAt))
	return nil
}

// SetProjectPath records the on-disk root. Assigned once; later calls
// with a different path are a conflict.
func (n *Node) SetProjectPath(path string) error {
	if n.projectPath != "" && n.projectPath != path {
		return pkgerrors.NewConflictError("project path already assigned")
	}
	n.projectPath = path
	return nil
}

// SetEnvironmentPath records the isolated runtime environment path
func (n *Node) SetEnvironmentPath(path string) {
	n.environmentPath = path
}

// GetUncommittedEvents returns all uncommitted domain events
func (n *Node) GetUncommittedEvents() []events.DomainEvent {
	return n.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (n *Node) MarkEventsAsCommitted() {
	n.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (n *Node) addEvent(event events.DomainEvent) {
	n.events = append(n.events, event)
}
