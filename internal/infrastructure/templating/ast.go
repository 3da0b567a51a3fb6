package templating

// Node is one element of a compiled template body
type Node interface {
	node()
}

// TextNode is literal markup copied to the output
type TextNode struct {
	Text string
}

// OutputNode evaluates an expression and writes it, escaped unless the value is safe
type OutputNode struct {
	Expr Expr
	Line int
}

// IfBranch is one condition and the body rendered when it holds
type IfBranch struct {
	Cond Expr
	Body []Node
}

// IfNode renders the first branch whose condition is truthy, or Else
type IfNode struct {
	Branches []IfBranch
	Else     []Node
	Line     int
}

// ForNode renders Body once per item of Source, or Else when Source is empty
type ForNode struct {
	Var    string
	Source Expr
	Body   []Node
	Else   []Node
	Line   int
}

func (*TextNode) node()   {}
func (*OutputNode) node() {}
func (*IfNode) node()     {}
func (*ForNode) node()    {}

// Expr is an expression inside an output or tag
type Expr interface {
	expr()
}

// PathSegment is a map key or a list index
type PathSegment struct {
	Key     string
	Index   int
	IsIndex bool
}

// PathExpr looks up a dotted path in the context
type PathExpr struct {
	Segments []PathSegment
	Raw      string
}

// LiteralExpr is a constant
type LiteralExpr struct {
	Value Value
}

// FilterExpr applies a named filter to its input
type FilterExpr struct {
	Name  string
	Input Expr
	Args  []Expr
	Line  int

	fn FilterFunc
}

// NotExpr negates the truthiness of X
type NotExpr struct {
	X Expr
}

// BinaryExpr is a comparison, membership test or boolean connective
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

func (*PathExpr) expr()    {}
func (*LiteralExpr) expr() {}
func (*FilterExpr) expr()  {}
func (*NotExpr) expr()     {}
func (*BinaryExpr) expr()  {}
