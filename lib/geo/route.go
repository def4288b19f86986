package geo

type Route []*Point

func (route Route) Length() float64 {
	l := 0.
	for i := 0; i < len(route)-1; i++ {
		l += EuclideanDistance(
			route[i].X, route[i].Y,
			route[i+1].X, route[i+1].Y,
		)
	}
	return l
}

// IsOrthogonal reports whether every segment of the route is axis aligned.
func (route Route) IsOrthogonal() bool {
	for i := 0; i < len(route)-1; i++ {
		if route[i].X != route[i+1].X && route[i].Y != route[i+1].Y {
			return false
		}
	}
	return true
}

// Simplify drops zero length segments and merges consecutive collinear ones.
func (route Route) Simplify() Route {
	out := make(Route, 0, len(route))
	for _, p := range route {
		if len(out) > 0 && out[len(out)-1].Equals(p) {
			continue
		}
		if len(out) >= 2 {
			a, b := out[len(out)-2], out[len(out)-1]
			if (a.X == b.X && b.X == p.X) || (a.Y == b.Y && b.Y == p.Y) {
				out[len(out)-1] = p
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func (route Route) ToString() string {
	return Points(route).ToString()
}
