// Package executor turns untyped request input into typed argument sets and
// domain values into JSON-safe output, both driven by definitions from a
// built schema.
//
// # Construction
//
// Construct walks the arguments of a schema.ArgumentSet in declaration order.
// For each argument whose condition holds for the request it:
//  1. Looks up a raw value: the input map (string keys, or any map whose key
//     kind is string), then the route, then the declared default.
//  2. Fails with missing_argument when a required argument has no value or a
//     null value. Absent optional arguments are left out of the result.
//  3. Parses the value by type. Arrays parse element-wise with the index in
//     the path; scalars run parse then validate; nested argument sets recurse
//     with an extended path; enums require a member string.
//  4. Runs the argument's named validations on non-null values.
//
// Lookup argument sets must end up with exactly one non-null value. Their
// resolver runs on demand through ArgumentSet.Resolve and its result is
// memoized for the lifetime of the set.
//
// # Serialization
//
// Serialize walks a schema.FieldSet in declaration order. A field is skipped
// when its condition fails or when the request's field filter rejects its
// path. Otherwise its value is obtained from the field backend or read off the
// source by key, then emitted by type:
//   - Null: only for nullable fields, including array elements.
//   - Array: each element emitted with its index in the path.
//   - Scalar and Enum: cast through the leaf definition; values of the wrong
//     runtime type are server defects, never coerced.
//   - Object: the object's conditions decide first; an excluded object omits
//     the field.
//   - Polymorph: the first matching option is emitted as {tag: value}.
//
// # Errors
//
// Both engines stop at the first failure and return an *Error carrying its
// kind, the path to the offending value and the underlying cause. Input kinds
// report true from ClientError; output kinds indicate bugs in the data or the
// definitions.
//
// # Concurrency
//
// Definitions are sealed by schema.Registry.Build and shared read-only.
// Everything this package creates belongs to a single request.
package executor
