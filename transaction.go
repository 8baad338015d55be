package compositor

// Transaction is a unit of deferred synchronous work applied to the host
// during a dispatch. A returned error means the host refused the change;
// it is recorded and the dispatch continues.
type Transaction interface {
	Process(h Host) error
}

// AnimationTransaction hands an animation to the host. The returned future
// resolves when the host accepted or rejected it.
type AnimationTransaction interface {
	Process(h Host) *Future
}

// TransactionFunc adapts a function to Transaction.
type TransactionFunc func(h Host) error

// Process implements Transaction.
func (f TransactionFunc) Process(h Host) error {
	return f(h)
}

// Transactions holds the four queues drained by one dispatch.
//
// Properties coalesce per node and name: a later write replaces the earlier
// one before it ever reaches the host.
type Transactions struct {
	Sub        []Transaction
	Movements  []Transaction
	Properties map[*DisplayNode]map[string]Transaction
	Animations []AnimationTransaction
}

// NewTransactions returns empty queues with the given capacity hint.
func NewTransactions(capacity int) *Transactions {
	return &Transactions{
		Sub:        make([]Transaction, 0, capacity),
		Movements:  make([]Transaction, 0, capacity),
		Properties: make(map[*DisplayNode]map[string]Transaction, capacity),
		Animations: make([]AnimationTransaction, 0, capacity),
	}
}

// SetProperty records tx as the pending write of name on node, replacing
// any earlier pending write of the same property.
func (t *Transactions) SetProperty(node *DisplayNode, name string, tx Transaction) {
	if t.Properties == nil {
		t.Properties = make(map[*DisplayNode]map[string]Transaction)
	}
	props := t.Properties[node]
	if props == nil {
		props = make(map[string]Transaction)
		t.Properties[node] = props
	}
	props[name] = tx
}

// Len returns the number of pending transactions in all queues.
func (t *Transactions) Len() int {
	n := len(t.Sub) + len(t.Movements) + len(t.Animations)
	for _, props := range t.Properties {
		n += len(props)
	}
	return n
}

// --- Records ---

// propertyTx writes one property of a node's host element.
type propertyTx struct {
	node  *DisplayNode
	name  string
	value any
}

func (tx propertyTx) Process(h Host) error {
	el := tx.node.elementFor(tx.name)
	if el == nil {
		return nil
	}
	return h.SetProperty(el, tx.name, tx.value)
}

// contentsTx binds a texture into a node's content slot. A nil texture
// clears the slot.
type contentsTx struct {
	node          *DisplayNode
	texture       DisplayTexture
	width, height float64
	scale         float64
}

func (tx contentsTx) Process(h Host) error {
	if tx.texture == nil {
		el := tx.node.elementFor(PropContents)
		if el == nil {
			return nil
		}
		tx.node.boundContent = contentBinding{}
		return h.SetContent(el, nil)
	}
	if tx.node.elementFor(PropContents) == nil {
		return nil
	}
	return tx.texture.SetNodeContent(tx.node, tx.width, tx.height, tx.scale)
}

type movementOp uint8

const (
	opInsert movementOp = iota
	opRemove
	opMove
	opAttachRoot
	opDetachRoot
	opDestroy
)

func (op movementOp) String() string {
	switch op {
	case opInsert:
		return "insert"
	case opRemove:
		return "remove"
	case opMove:
		return "move"
	case opAttachRoot:
		return "attachRoot"
	case opDetachRoot:
		return "detachRoot"
	case opDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// movementTx is a structural change. Elements are resolved when the
// transaction is applied, so a node created earlier in the same batch is
// already backed by host elements.
type movementTx struct {
	op            movementOp
	node          *DisplayNode
	parent        *DisplayNode
	before, after *DisplayNode
}

func (tx movementTx) Process(h Host) error {
	child := tx.node.layout
	switch tx.op {
	case opInsert:
		if child == nil || tx.parent.content == nil {
			return nil
		}
		h.InsertChild(tx.parent.content, child, tx.before.layoutOrNil(), tx.after.layoutOrNil())
	case opRemove:
		if child == nil || tx.parent.content == nil {
			return nil
		}
		h.RemoveChild(tx.parent.content, child)
	case opMove:
		if child == nil {
			return nil
		}
		if parent := h.Parent(child); parent != nil {
			h.InsertChild(parent, child, tx.before.layoutOrNil(), tx.after.layoutOrNil())
		}
	case opAttachRoot:
		if child == nil {
			return nil
		}
		h.InsertChild(h.Root(), child, nil, nil)
	case opDetachRoot:
		if child == nil {
			return nil
		}
		h.RemoveChild(h.Root(), child)
	case opDestroy:
		tx.node.destroyElements(h)
	}
	return nil
}

// createTx backs a node with host elements.
type createTx struct {
	node *DisplayNode
}

func (tx createTx) Process(h Host) error {
	tx.node.createElements(h)
	return nil
}

// adoptTx replaces a composite node's elements with externally created ones.
type adoptTx struct {
	node            *DisplayNode
	layout, content Element
}

func (tx adoptTx) Process(h Host) error {
	tx.node.adoptElements(h, tx.layout, tx.content)
	return nil
}

// animationTx realizes an animation against a node.
type animationTx struct {
	anim *DisplayAnimation
	node *DisplayNode
}

func (tx animationTx) Process(h Host) *Future {
	return tx.anim.realize(h, tx.node)
}
