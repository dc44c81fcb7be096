package game

import "fmt"

func msgInvalidBet(mention string) string {
	return fmt.Sprintf("%s please enter a valid bet amount", mention)
}

func msgUserNotFound(mention string) string {
	return fmt.Sprintf("%s could not find that user", mention)
}

func msgTargetInsufficient(mention, target string) string {
	return fmt.Sprintf("%s %s does not have enough to match the bet", mention, target)
}

func msgAlreadyUnderway(mention string) string {
	return fmt.Sprintf("%s a game is already underway, please wait until it finishes", mention)
}

func msgPayoutFailed(mention string) string {
	return fmt.Sprintf("%s the spin could not be paid out and the bet was refunded", mention)
}

func msgSettleFailed(mention string) string {
	return fmt.Sprintf("%s the duel could not be settled and the bet was refunded", mention)
}
