package challenge

import "errors"

var (
	ErrChallengeEnded       = errors.New("this challenge has already ended")
	ErrAlreadyJoined        = errors.New("you have already joined this challenge")
	ErrChallengeFull        = errors.New("this challenge has reached the maximum number of participants")
	ErrNotParticipant       = errors.New("you are not a participant of this challenge")
	ErrNotCreator           = errors.New("only the creator trainer can manage this challenge")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrNotCompleted         = errors.New("participant has not completed target")
	ErrWinnerNotParticipant = errors.New("winner must be a participant")
	ErrWinnerNotApproved    = errors.New("winner must be approved by trainer first")
)
