package space

// Label fields.
const (
	FieldName    = "name"
	FieldID      = "id"
	FieldComment = "comment"
)

var labelFields = map[string]bool{
	FieldName:    true,
	FieldID:      false,
	FieldComment: true,
}

// LabelFields is what a label panel displays.
type LabelFields struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Comment string `json:"comment"`
}

// Label is the name/comment annotation attached to a device. It is created
// and closed with its device, hidden by default, and kept in sync by the
// device's setters: every change calls the registered OnChange callbacks.
type Label struct {
	fields   LabelFields
	visible  bool
	closed   bool
	onChange []func(LabelFields)
}

func newLabel(d *Device) *Label {
	return &Label{
		fields: LabelFields{Name: d.Name, ID: d.ID, Comment: d.Comment},
	}
}

// Fields returns the current label contents.
func (l *Label) Fields() LabelFields {
	return l.fields
}

// Visible reports whether the label panel is shown.
func (l *Label) Visible() bool {
	return l.visible
}

// Toggle flips visibility and returns the new state.
func (l *Label) Toggle() bool {
	l.visible = !l.visible
	return l.visible
}

// OnChange registers fn to run after each field update.
func (l *Label) OnChange(fn func(LabelFields)) {
	l.onChange = append(l.onChange, fn)
}

// Closed reports whether the owning device has been deleted.
func (l *Label) Closed() bool {
	return l.closed
}

// Editable reports whether field exists and may be edited.
func Editable(field string) (editable, known bool) {
	editable, known = labelFields[field]
	return editable, known
}

func (l *Label) sync(d *Device) {
	if l.closed {
		return
	}
	next := LabelFields{Name: d.Name, ID: d.ID, Comment: d.Comment}
	if next == l.fields {
		return
	}
	l.fields = next
	for _, fn := range l.onChange {
		fn(next)
	}
}

func (l *Label) close() {
	l.closed = true
	l.visible = false
	l.onChange = nil
}
