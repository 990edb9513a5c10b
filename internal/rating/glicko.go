// Package rating implements the Glicko-2 rating system for a single decisive game.
package rating

import (
	"math"

	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

const (
	scale = 173.7178

	// DefaultTau constrains the change in volatility over time.
	DefaultTau = 0.5

	convergence = 0.000001
)

type Calculator struct {
	tau float64
}

func NewCalculator(tau float64) *Calculator {
	if tau <= 0 {
		tau = DefaultTau
	}

	return &Calculator{tau: tau}
}

// PostGame returns the updated ratings of the winner and the loser of one game.
// Both updates use the ratings from before the game.
func (that *Calculator) PostGame(winner, loser entity.Rating) (entity.Rating, entity.Rating) {
	return that.update(winner, loser, 1), that.update(loser, winner, 0)
}

// update applies one Glicko-2 rating period with a single opponent and score s.
func (that *Calculator) update(player, opponent entity.Rating, s float64) entity.Rating {
	mu, phi := toGlicko2(player)
	muJ, phiJ := toGlicko2(opponent)

	g := gFactor(phiJ)
	e := expected(mu, muJ, g)

	v := 1 / (g * g * e * (1 - e))
	delta := v * g * (s - e)

	sigma := that.volatility(phi, player.Volatility, v, delta)

	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	newPhi := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	newMu := mu + newPhi*newPhi*g*(s-e)

	return entity.Rating{
		Rating:     scale*newMu + entity.DefaultRating,
		Deviation:  scale * newPhi,
		Volatility: sigma,
	}
}

// volatility solves for the new volatility with the Illinois algorithm.
func (that *Calculator) volatility(phi, sigma, v, delta float64) float64 {
	a := math.Log(sigma * sigma)
	tau2 := that.tau * that.tau

	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := phi*phi + v + ex

		return ex*(delta*delta-phi*phi-v-ex)/(2*d*d) - (x-a)/tau2
	}

	bigA := a
	var bigB float64

	if delta*delta > phi*phi+v {
		bigB = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*that.tau) < 0 {
			k++
		}
		bigB = a - k*that.tau
	}

	fA, fB := f(bigA), f(bigB)

	for math.Abs(bigB-bigA) > convergence {
		bigC := bigA + (bigA-bigB)*fA/(fB-fA)
		fC := f(bigC)

		if fC*fB <= 0 {
			bigA, fA = bigB, fB
		} else {
			fA /= 2
		}

		bigB, fB = bigC, fC
	}

	return math.Exp(bigA / 2)
}

func toGlicko2(r entity.Rating) (float64, float64) {
	return (r.Rating - entity.DefaultRating) / scale, r.Deviation / scale
}

func gFactor(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

func expected(mu, muJ, g float64) float64 {
	return 1 / (1 + math.Exp(-g*(mu-muJ)))
}
