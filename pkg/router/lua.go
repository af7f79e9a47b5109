package router

import (
	"context"
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/vango-dev/ssrpages/internal/errors"
)

// luaRouteGlobal is the function a route script must define.
const luaRouteGlobal = "route"

// LuaRoute is a route function written in Lua.
//
// The script defines a global function route(ctx) where ctx carries
// urlPathname, urlOriginal and search. It returns a boolean, or a table
// {match = bool, precedence = number, routeParams = {...}}.
type LuaRoute struct {
	name  string
	proto *lua.FunctionProto
}

// CompileLuaRoute parses and compiles a route script once. Each call runs
// in a fresh state.
func CompileLuaRoute(name, source string) (*LuaRoute, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, errors.New("E240").WithDetailf("lua route %s", name).Wrap(err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, errors.New("E240").WithDetailf("lua route %s", name).Wrap(err)
	}
	return &LuaRoute{name: name, proto: proto}, nil
}

// Func adapts the script to a RouteFunc.
func (r *LuaRoute) Func() RouteFunc {
	return r.call
}

func (r *LuaRoute) call(ctx context.Context, req *Request) (result FuncResult, err error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibraries(L)
	L.SetContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("E241").WithDetailf("lua route %s: panic: %v", r.name, rec)
		}
	}()

	L.Push(L.NewFunctionFromProto(r.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return FuncResult{}, errors.New("E241").WithDetailf("lua route %s", r.name).Wrap(err)
	}

	fn := L.GetGlobal(luaRouteGlobal)
	if fn.Type() != lua.LTFunction {
		return FuncResult{}, errors.New("E242").
			WithDetailf("lua route %s does not define function %q (got %s)", r.name, luaRouteGlobal, fn.Type())
	}

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, requestTable(L, req)); err != nil {
		return FuncResult{}, errors.New("E241").WithDetailf("lua route %s", r.name).Wrap(err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return r.decodeResult(ret)
}

func (r *LuaRoute) decodeResult(ret lua.LValue) (FuncResult, error) {
	switch v := ret.(type) {
	case lua.LBool:
		return FuncResult{Match: bool(v)}, nil
	case *lua.LTable:
		res := FuncResult{Match: lua.LVAsBool(v.RawGetString("match"))}
		switch p := v.RawGetString("precedence").(type) {
		case lua.LNumber:
			f := float64(p)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return FuncResult{}, errors.New("E242").WithDetailf("lua route %s: precedence %v is not finite", r.name, f)
			}
			// MaxInt rounds up to 2^63 as a float64, so the bound is exclusive.
			if f < math.MinInt || f >= math.MaxInt {
				return FuncResult{}, errors.New("E242").WithDetailf("lua route %s: precedence %v is out of range", r.name, f)
			}
			res.Precedence = int(f)
		case *lua.LNilType:
		default:
			return FuncResult{}, errors.New("E242").WithDetailf("lua route %s: precedence must be a number, got %s", r.name, p.Type())
		}
		switch params := v.RawGetString("routeParams").(type) {
		case *lua.LTable:
			res.RouteParams = make(map[string]string)
			var bad error
			params.ForEach(func(k, val lua.LValue) {
				ks, ok := k.(lua.LString)
				if !ok {
					bad = fmt.Errorf("routeParams key %v is not a string", k)
					return
				}
				switch val.(type) {
				case lua.LString, lua.LNumber:
					res.RouteParams[string(ks)] = val.String()
				default:
					bad = fmt.Errorf("routeParams[%q] is a %s, want string", string(ks), val.Type())
				}
			})
			if bad != nil {
				return FuncResult{}, errors.New("E242").WithDetailf("lua route %s", r.name).Wrap(bad)
			}
		case *lua.LNilType:
		default:
			return FuncResult{}, errors.New("E242").WithDetailf("lua route %s: routeParams must be a table, got %s", r.name, params.Type())
		}
		return res, nil
	}
	return FuncResult{}, errors.New("E242").
		WithDetailf("lua route %s returned %s, want boolean or table", r.name, ret.Type())
}

func requestTable(L *lua.LState, req *Request) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("urlPathname", lua.LString(req.URLPathname))
	t.RawSetString("urlOriginal", lua.LString(req.URLOriginal))
	search := L.NewTable()
	if req.URLParsed != nil {
		for k, v := range req.URLParsed.Search {
			search.RawSetString(k, lua.LString(v))
		}
	}
	t.RawSetString("search", search)
	return t
}

// openSafeLibraries opens base, table, string and math. io, os and debug
// stay closed; loaders are removed from the base library.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}
