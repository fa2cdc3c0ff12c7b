// Package stream reads chunk records from line-delimited JSON sources.
//
// A Reader yields each well-formed line as a *core.ChunkRecord. Blank lines
// are skipped. A line that is not a JSON object produces a *ParseError and
// reading continues with the next line:
//
//	r := stream.NewReader(f)
//	for rec, err := range r.Records() {
//	    var perr *stream.ParseError
//	    if errors.As(err, &perr) {
//	        continue
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// The sequence reads its source exactly once. Records returned by a second
// call to Records are empty.
package stream
