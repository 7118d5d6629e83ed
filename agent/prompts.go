package agent

import (
	"fmt"
	"time"
)

// DraftInstruction is the first responder's instruction.
const DraftInstruction = "Provide a detailed ~250 word answer"

// ReviseInstruction is the revisor's instruction.
const ReviseInstruction = `Revise your previous answer using the new information.
- Max 250 words. Do not exceed.
- Include inline numeric citations like [1], [2] that map to a "References" list.
- Provide 3-6 references that support specific claims; prefer sources (<= 3 years).
- Avoid generic claims without a citation.
- Keep a professional, actionable tone.`

const formatReminder = "Answer the user's question above using the required format."

func actorPrompt(now time.Time, instruction string) string {
	return fmt.Sprintf(`You are expert AI researcher.
Current time: %s

1. %s
2. Reflect and critique your answer. Be severe to maximize improvement.
3. After the reflection, **list 1-3 search queries separately** for researching improvements. Do not include them inside the reflection.`,
		now.Format(time.RFC3339), instruction)
}
