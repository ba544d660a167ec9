package server

import (
	"fmt"
	"math"
	"strconv"

	"github.com/VictoriaMetrics/metrics"
	"github.com/jkrings/larch/lib/zset"
	"github.com/jkrings/larch/proto"
)

// --------------------------------------------------------------------------
// Command Table
// --------------------------------------------------------------------------

// handlerFunc mutates the keyspace and produces the typed reply;
// serialization happens elsewhere. nowMs is the loop's timestamp for
// this tick so all TTL math within one tick agrees.
type handlerFunc func(db *DB, args [][]byte, nowMs int64) proto.Value

type command struct {
	arity int
	run   handlerFunc
	calls *metrics.Counter
}

var commands = map[string]*command{
	"get":     {arity: 2, run: cmdGet},
	"set":     {arity: 3, run: cmdSet},
	"del":     {arity: 2, run: cmdDel},
	"pexpire": {arity: 3, run: cmdPExpire},
	"pttl":    {arity: 2, run: cmdPTTL},
	"zadd":    {arity: 4, run: cmdZAdd},
	"zrem":    {arity: 3, run: cmdZRem},
	"zscore":  {arity: 3, run: cmdZScore},
	"zquery":  {arity: 6, run: cmdZQuery},
	"keys":    {arity: 1, run: cmdKeys},
}

func init() {
	for verb, cmd := range commands {
		cmd.calls = metrics.NewCounter(fmt.Sprintf(`larch_commands_total{verb=%q}`, verb))
	}
}

// Dispatch routes one parsed request to its handler.
func Dispatch(db *DB, args [][]byte, nowMs int64) proto.Value {
	if len(args) == 0 {
		return proto.Err(proto.CodeUnknown, "empty request")
	}
	cmd, ok := commands[string(args[0])]
	if !ok {
		return proto.Err(proto.CodeUnknown, "unknown command")
	}
	if len(args) != cmd.arity {
		return proto.Err(proto.CodeBadArg, "wrong number of arguments")
	}
	cmd.calls.Inc()
	return cmd.run(db, args, nowMs)
}

// --------------------------------------------------------------------------
// Argument Parsing
// --------------------------------------------------------------------------

func parseInt(arg []byte) (int64, bool) {
	v, err := strconv.ParseInt(string(arg), 10, 64)
	return v, err == nil
}

func parseFloat(arg []byte) (float64, bool) {
	v, err := strconv.ParseFloat(string(arg), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// --------------------------------------------------------------------------
// String Commands
// --------------------------------------------------------------------------

func cmdGet(db *DB, args [][]byte, _ int64) proto.Value {
	e := db.get(args[1])
	if e == nil {
		return proto.Nil()
	}
	if e.typ != typeStr {
		return proto.Err(proto.CodeBadType, "expect string value")
	}
	return proto.Str(e.str)
}

func cmdSet(db *DB, args [][]byte, _ int64) proto.Value {
	e := db.get(args[1])
	if e == nil {
		e = db.insert(args[1])
		e.typ = typeStr
	} else if e.typ != typeStr {
		return proto.Err(proto.CodeBadType, "expect string value")
	}
	// the argument aliases the connection buffer, the entry needs its own copy
	e.str = append([]byte(nil), args[2]...)
	return proto.Nil()
}

func cmdDel(db *DB, args [][]byte, _ int64) proto.Value {
	if db.remove(args[1]) {
		return proto.Int(1)
	}
	return proto.Int(0)
}

// --------------------------------------------------------------------------
// TTL Commands
// --------------------------------------------------------------------------

func cmdPExpire(db *DB, args [][]byte, nowMs int64) proto.Value {
	ttlMs, ok := parseInt(args[2])
	if !ok {
		return proto.Err(proto.CodeBadArg, "expect int64")
	}
	e := db.get(args[1])
	if e == nil {
		return proto.Int(0)
	}
	db.setTTL(e, ttlMs, nowMs)
	return proto.Int(1)
}

func cmdPTTL(db *DB, args [][]byte, nowMs int64) proto.Value {
	e := db.get(args[1])
	if e == nil {
		return proto.Int(-2)
	}
	return proto.Int(db.ttlMs(e, nowMs))
}

// --------------------------------------------------------------------------
// Sorted-Set Commands
// --------------------------------------------------------------------------

func cmdZAdd(db *DB, args [][]byte, _ int64) proto.Value {
	score, ok := parseFloat(args[2])
	if !ok {
		return proto.Err(proto.CodeBadArg, "expect float")
	}
	e := db.get(args[1])
	if e == nil {
		e = db.insert(args[1])
		e.typ = typeZSet
		e.zset = zset.New()
	} else if e.typ != typeZSet {
		return proto.Err(proto.CodeBadType, "expect zset")
	}
	if e.zset.Insert(args[3], score) {
		return proto.Int(1)
	}
	return proto.Int(0)
}

func cmdZRem(db *DB, args [][]byte, _ int64) proto.Value {
	e := db.get(args[1])
	if e == nil {
		return proto.Int(0)
	}
	if e.typ != typeZSet {
		return proto.Err(proto.CodeBadType, "expect zset")
	}
	if e.zset.Delete(args[2]) {
		return proto.Int(1)
	}
	return proto.Int(0)
}

func cmdZScore(db *DB, args [][]byte, _ int64) proto.Value {
	e := db.get(args[1])
	if e == nil {
		return proto.Nil()
	}
	if e.typ != typeZSet {
		return proto.Err(proto.CodeBadType, "expect zset")
	}
	node := e.zset.Lookup(args[2])
	if node == nil {
		return proto.Nil()
	}
	return proto.Dbl(node.Score())
}

func cmdZQuery(db *DB, args [][]byte, _ int64) proto.Value {
	score, ok := parseFloat(args[2])
	if !ok {
		return proto.Err(proto.CodeBadArg, "expect float")
	}
	offset, ok := parseInt(args[4])
	if !ok {
		return proto.Err(proto.CodeBadArg, "expect int64")
	}
	limit, ok := parseInt(args[5])
	if !ok {
		return proto.Err(proto.CodeBadArg, "expect int64")
	}
	if limit < 0 {
		return proto.Err(proto.CodeBadArg, "negative limit")
	}

	e := db.get(args[1])
	if e == nil {
		return proto.Arr(nil)
	}
	if e.typ != typeZSet {
		return proto.Err(proto.CodeBadType, "expect zset")
	}

	node := e.zset.SeekGE(score, args[3])
	if node != nil && offset != 0 {
		node = node.Offset(offset)
	}

	elems := make([]proto.Value, 0, 2*min(limit, int64(e.zset.Len())))
	for n := int64(0); node != nil && n < limit; n++ {
		elems = append(elems, proto.Str(node.Name()), proto.Dbl(node.Score()))
		node = node.Offset(1)
	}
	return proto.Arr(elems)
}

// --------------------------------------------------------------------------
// Keyspace Commands
// --------------------------------------------------------------------------

func cmdKeys(db *DB, _ [][]byte, _ int64) proto.Value {
	names := db.keys()
	elems := make([]proto.Value, 0, len(names))
	for _, name := range names {
		elems = append(elems, proto.Str(name))
	}
	return proto.Arr(elems)
}
