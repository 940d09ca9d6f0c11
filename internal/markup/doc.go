// Package markup decodes element trees from YAML and CUE files.
//
// A tree file holds either a bare element or a document with a tree and
// component templates:
//
//	components:
//	  Greeting:
//	    tag: h1
//	    children: ["Hello, ", "$name"]
//	tree:
//	  tag: div
//	  props: { id: main, onClick: "@select" }
//	  children:
//	    - tag: Greeting
//	      props: { name: World }
//	    - "plain text"
//
// An element is a map with a required tag and optional props and children.
// Children are elements or scalars (string, int, bool); scalars become text
// elements. Property values are scalars. Floats and nulls are rejected.
//
// Tags are resolved through a Registry: registered or templated component
// names become component tags, everything else is a host tag. Listener
// properties (onClick, onInput, ...) take "@name" references to listeners
// held by the Registry, so the same name always resolves to the same
// listener value and re-decoding a file produces no listener churn.
//
// Inside a template body, a string "$name" is replaced by the component's
// "name" property and "$children" (as a child) by the element's children.
// "$$" escapes a literal leading dollar sign.
package markup
