package mir

// CanonicalUserTypeAnnotation is a type written by the user, kept so the
// type checker can relate it to the inferred type.
type CanonicalUserTypeAnnotation struct {
	UserTy   Ty
	Span     Span
	Inferred Ty
}

// UserTypeProjection is a user type annotation narrowed by a projection
// path, for patterns such as `let (a, b): (T, U) = ...`.
type UserTypeProjection struct {
	Base  UserTypeAnnotationIndex
	Projs []PlaceElem
}

func (p UserTypeProjection) with(elem PlaceElem) UserTypeProjection {
	projs := make([]PlaceElem, len(p.Projs), len(p.Projs)+1)
	copy(projs, p.Projs)
	return UserTypeProjection{Base: p.Base, Projs: append(projs, elem)}
}

// Index projects an array element at an unknown offset. The type is the
// same for every element so no local is needed.
func (p UserTypeProjection) Index() UserTypeProjection {
	return p.with(Index{})
}

// Subslice projects a subslice.
func (p UserTypeProjection) Subslice(from, to uint64) UserTypeProjection {
	return p.with(Subslice{From: from, To: to, FromEnd: true})
}

// Deref projects through a reference.
func (p UserTypeProjection) Deref() UserTypeProjection {
	return p.with(Deref{})
}

// Leaf projects a field.
func (p UserTypeProjection) Leaf(field FieldIdx) UserTypeProjection {
	return p.with(Field{Index: field, Ty: Unit})
}

// Variant downcasts to an enum variant and then projects one of its
// fields.
func (p UserTypeProjection) Variant(name string, variant VariantIdx, field FieldIdx) UserTypeProjection {
	return p.with(Downcast{Name: name, Variant: variant}).with(Field{Index: field, Ty: Unit})
}

// ProjectionSpan pairs a projection with the span it was written at.
type ProjectionSpan struct {
	Projection UserTypeProjection
	Span       Span
}

// UserTypeProjections is the set of user type annotations that apply to a
// local, each narrowed to the part of the value the local binds.
type UserTypeProjections struct {
	Contents []ProjectionSpan
}

// IsEmpty reports whether there are no annotations.
func (u *UserTypeProjections) IsEmpty() bool { return len(u.Contents) == 0 }

// Projections returns the projections without their spans.
func (u *UserTypeProjections) Projections() []UserTypeProjection {
	out := make([]UserTypeProjection, len(u.Contents))
	for i, c := range u.Contents {
		out[i] = c.Projection
	}
	return out
}

// PushProjection adds an annotation.
func (u *UserTypeProjections) PushProjection(p UserTypeProjection, span Span) *UserTypeProjections {
	u.Contents = append(u.Contents, ProjectionSpan{Projection: p, Span: span})
	return u
}

func (u *UserTypeProjections) mapProjections(f func(UserTypeProjection) UserTypeProjection) *UserTypeProjections {
	out := &UserTypeProjections{Contents: make([]ProjectionSpan, len(u.Contents))}
	for i, c := range u.Contents {
		out.Contents[i] = ProjectionSpan{Projection: f(c.Projection), Span: c.Span}
	}
	return out
}

// Index applies UserTypeProjection.Index to every annotation.
func (u *UserTypeProjections) Index() *UserTypeProjections {
	return u.mapProjections(UserTypeProjection.Index)
}

// Subslice applies UserTypeProjection.Subslice to every annotation.
func (u *UserTypeProjections) Subslice(from, to uint64) *UserTypeProjections {
	return u.mapProjections(func(p UserTypeProjection) UserTypeProjection { return p.Subslice(from, to) })
}

// Deref applies UserTypeProjection.Deref to every annotation.
func (u *UserTypeProjections) Deref() *UserTypeProjections {
	return u.mapProjections(UserTypeProjection.Deref)
}

// Leaf applies UserTypeProjection.Leaf to every annotation.
func (u *UserTypeProjections) Leaf(field FieldIdx) *UserTypeProjections {
	return u.mapProjections(func(p UserTypeProjection) UserTypeProjection { return p.Leaf(field) })
}

// Variant applies UserTypeProjection.Variant to every annotation.
func (u *UserTypeProjections) Variant(name string, variant VariantIdx, field FieldIdx) *UserTypeProjections {
	return u.mapProjections(func(p UserTypeProjection) UserTypeProjection { return p.Variant(name, variant, field) })
}
