package tsdecl

// TypeExpr is a type expression built by the compiler.
// Only the shapes the compiler emits are modelled.
type TypeExpr interface {
	typeExpr() // marker method to restrict implementation
}

// Keyword is a predefined type.
type Keyword string

// Keywords used by generated declarations.
const (
	String  Keyword = "string"
	Boolean Keyword = "boolean"
	Never   Keyword = "never"
	Unknown Keyword = "unknown"
)

// Ref is a reference to a named type with optional type arguments.
type Ref struct {
	Name string
	Args []TypeExpr
}

// Literal is a string literal type.
type Literal struct {
	Value string
}

// Union is a union of member types. An empty union renders as never.
// Multiline renders one member per line with a leading bar.
type Union struct {
	Members   []TypeExpr
	Multiline bool
}

// Array is an array of Elem.
type Array struct {
	Elem TypeExpr
}

// Prop is one property of an object type.
type Prop struct {
	Name     string
	Optional bool
	Type     TypeExpr
}

// Object is an object literal type.
type Object struct {
	Props []Prop
}

func (Keyword) typeExpr()  {}
func (*Ref) typeExpr()     {}
func (*Literal) typeExpr() {}
func (*Union) typeExpr()   {}
func (*Array) typeExpr()   {}
func (*Object) typeExpr()  {}

// NewTypeAlias builds a declaration for `type name = typ`, rendered by the printer.
func NewTypeAlias(name string, typ TypeExpr, exported bool) *Declaration {
	d := &Declaration{
		Kind:     DeclTypeAlias,
		Name:     name,
		Exported: exported,
		Body:     "type " + name + " =" + formatAliasType(typ),
	}
	if ref, ok := typ.(*Ref); ok && len(ref.Args) == 0 {
		d.Target = ref.Name
	}
	return d
}

// NewImport builds a named import statement.
func NewImport(module string, typeOnly bool, names ...string) *Import {
	imp := &Import{Module: module, TypeOnly: typeOnly}
	for _, n := range names {
		imp.Specs = append(imp.Specs, ImportSpec{Name: n})
	}
	return imp
}
