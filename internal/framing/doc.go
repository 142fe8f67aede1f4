// Package framing separates in-band runtime status markers from ordinary
// terminal output.
//
// The hub prints markers such as ">>>> IDLE" into the same byte stream as
// program output. A [Classifier] tries an ordered list of [Rule] values and
// the first rule that matches wins; rule order, not position in the text,
// decides which marker is honored. Only one marker is handled per fragment:
// any further marker text stays in the suffix payload and is not re-scanned.
//
// [Decoder] turns raw notification buffers into text before classification.
package framing
