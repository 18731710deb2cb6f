package dialogue

// prompts.go holds the instruction templates sent to the completion service.
// Keeping them together makes the delegation contract easy to review and
// tweak without touching the control flow.

const (
	greetingNew = "Hello! I'm your medical assistant. Could you please describe your symptoms or health concern in detail?"

	greetingReturning = "Welcome back! How are you feeling today? Please describe your current health concern in detail."

	questionPreviousHistory = "Have you consulted a doctor about these symptoms before? If yes, what was their diagnosis?"

	questionMedicationHistory = "Have you taken any medications for this condition? If yes, what medications and did you experience any side effects?"

	questionAdditionalSymptoms = "Besides what you've already mentioned, are you experiencing any other symptoms that we should know about?"

	questionDoctorDiagnosis = "What was the doctor's diagnosis?"

	messageEnoughInformation = "Thank you for all this information. I have enough details now to analyze your situation and provide a preliminary diagnosis."

	messageMovingToDiagnosis = "Thank you for all this information. I'll now analyze your symptoms and provide a preliminary diagnosis."

	fallbackFollowUpQuestion = "Could you tell me more about your symptoms?"
)

// promptUrgencyAssessment asks for a structured triage judgment of the first
// free-text description. Args: patient description.
const promptUrgencyAssessment = `
Based on the following patient description, assess the medical urgency:

Patient description: "%s"

Rate the urgency as:
1. URGENT - requires immediate medical attention (bleeding, trouble breathing, severe injury)
2. PROMPT - should be addressed soon but not an emergency
3. ROUTINE - standard medical concern

Also identify the primary medical issue category (e.g., injury, infection, digestive, respiratory, chronic).
Explain your reasoning briefly.

Format your response as JSON:
{
    "urgency_level": "URGENT/PROMPT/ROUTINE",
    "category": "primary medical issue category",
    "reasoning": "brief explanation",
    "key_symptoms": ["symptom1", "symptom2"],
    "recommended_questions": ["question1", "question2"]
}
`

// promptUrgentAdvice asks for four immediate first aid steps. Args: patient
// description.
const promptUrgentAdvice = `
The patient has described: "%s"

Based on this information, provide 4 urgent first aid steps for this
medical situation. Format as a simple numbered list with only the most critical
steps to take immediately.

Example format:
1. Call emergency services
2. Specific action to take
3. Another critical action
4. Final immediate instruction
`

// promptNextQuestion asks for a category-tailored follow-up after triage.
// Args: patient description, category, key symptoms, urgency level.
const promptNextQuestion = `
The patient has described: "%s"

Based on this information and the medical category identified (%s),
generate the most relevant next question to ask.

Consider:
1. The specific symptoms described (%s)
2. The urgency level (%s)
3. What additional information would help most with diagnosis

Your question should be tailored to the specific medical situation, not generic.
For example, if they mentioned diarrhea, ask about recent food consumption and travel.

Format your response as a direct question to the patient.
`

// promptDynamicFollowUp drives the self-looping category steps. Args: recent
// history, latest response, category, key symptoms, urgency, turn count.
const promptDynamicFollowUp = `
Patient history:
%s

Latest response: "%s"

Current medical category: %s
Key symptoms identified: %s
Urgency level: %s
Turn count: %d

Based on all this information, what is the most relevant next question to ask?
Consider what additional information would be most valuable for diagnosis.

IMPORTANT: If we now have enough information, indicate that we should move to diagnosis.

Generate a personalized follow-up question that naturally continues this specific medical conversation.
DO NOT ask generic questions that don't relate to their specific condition.

Format your response as JSON:
{
    "next_question": "your specific follow-up question",
    "move_to_diagnosis": true/false,
    "reasoning": "brief explanation why we should/shouldn't move to diagnosis"
}
`

// promptSimilarDiagnoses suggests related conditions after a disclosed
// previous diagnosis. Args: symptom list, previous diagnosis.
const promptSimilarDiagnoses = "For a patient with symptoms %s and a previous diagnosis of %s, suggest 2-3 similar or related possible diagnoses. Keep it brief."

// promptDiagnosis asks for a focused preliminary diagnosis with fixed
// section headers the parser relies on. Args: patient description.
const promptDiagnosis = `
You are a medical AI assistant providing a preliminary analysis of a patient's symptoms.
Based on the following patient description, provide a focused, relevant diagnosis:

%s

IMPORTANT: Your diagnosis must:
1. Be DIRECTLY RELEVANT to the symptoms actually mentioned by the patient
2. Focus on the most likely condition based on their specific description
3. Provide actionable advice that addresses their particular situation
4. Be clear, concise, and formatted for easy reading

Format your response with these EXACT headings:

## LIKELY CONDITION
[Provide the most likely condition and a brief explanation - 2-3 sentences maximum]

## ACTION STEPS
- [First action step - specific and relevant to this condition]
- [Second action step]
- [Third action step if necessary]

## NOTE
[A brief note about when to consult a doctor - 1 sentence]

DO NOT include generic advice that isn't directly related to the patient's specific symptoms.
`

// promptBulletedDiagnosis is the quick diagnosis used straight after the
// additional-symptoms step. Args: symptoms, previous history, medication
// history, additional symptoms.
const promptBulletedDiagnosis = `Based on the following patient information, provide a detailed diagnosis:

Symptoms: %s
Previous Medical History: %s
Medication History: %s
Additional Symptoms: %s

Format your diagnosis as a clear bulleted list with:
- Most likely condition(s)
- Brief explanation for each condition
- Key symptoms supporting this diagnosis
`

// promptUrgencyCheck asks the binary escalation question before the final
// criticality report. Args: symptoms, previous history, medication history,
// diagnosis.
const promptUrgencyCheck = `Based on the following patient information:

Symptoms: %s
Previous Medical History: %s
Medication History: %s
Diagnosis: %s

Is this potentially an urgent medical situation requiring immediate attention?
Answer with ONLY 'YES' or 'NO'.
`

// promptCriticality asks for the structured closing assessment. Args:
// symptoms, previous history, medication history, diagnosis.
const promptCriticality = `Based on the following patient information:

Symptoms: %s
Previous Medical History: %s
Medication History: %s
Diagnosis: %s

Provide a clear assessment of urgency and recommendations.

Format your response with EXACTLY these sections:

## URGENCY LEVEL
[State whether this is URGENT (needs immediate care), PROMPT (see doctor soon), or ROUTINE]

## TIMEFRAME
[When the patient should see a doctor: immediately, within 24 hours, within a week, or at their convenience]

## PRECAUTIONS
- [First precaution as a bullet point]
- [Second precaution as a bullet point]
- [Third precaution as a bullet point if applicable]

## DISCLAIMER
[A brief medical disclaimer that this is not a substitute for professional care]
`

// promptEmergencySteps asks for condition-specific first aid during the
// urgent path. Args: patient description.
const promptEmergencySteps = `
Based on this patient's information:

%s

Provide 4 SPECIFIC emergency first aid steps that are directly relevant to their condition.
These should be clear, actionable instructions that address their urgent medical situation.

Format your response as 4 numbered steps, each being a concise, direct instruction.
`

// promptCaseSummary produces the physician-facing summary. Args: symptoms,
// previous history, medication history, additional symptoms, diagnosis,
// urgency sentence, extracted details.
const promptCaseSummary = `Generate a concise, professional medical case summary for a doctor based on the following patient information:

Presenting Symptoms: %s
Medical History: %s
Medication History: %s
Additional Symptoms: %s
Preliminary Diagnosis: %s
Urgency Assessment: %s

Additional Extracted Details: %s

Format the summary as a professional medical case summary that a physician would find useful. Include only factual information provided by the patient. Structure the summary with clear headings for Chief Complaint, History, Medications, Assessment, and Recommendations.
`

// Validation instruction prompts, one per expected reply type. Args:
// question, reply.
var validationPrompts = map[string]string{
	"previous_history": `
As a medical assistant, evaluate if the following response addresses medical history or doctor consultations.
The question is about whether the patient has consulted a doctor about their symptoms before.
A simple "yes" or "no" is valid. A diagnosis name like "viral fever" is a valid response.

Question: "%s"
User Response: "%s"

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "has_consulted_doctor": true/false,
    "extracted_diagnosis": "diagnosis" (if applicable)
}

NOTE: Be very lenient in your evaluation. If the response could reasonably be interpreted as a
previous diagnosis or an indication they have/have not seen a doctor, mark it as valid.
`,
	"symptoms": `
As a medical assistant, evaluate if the following response describes medical symptoms.

Question: "%s"
User Response: "%s"

First, determine if the user is describing any medical symptoms or health concerns.
If yes, extract and list those symptoms.
If no, explain why the response doesn't describe symptoms.

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "extracted_symptoms": ["symptom1", "symptom2"] (if applicable)
}
`,
	"medication_history": `
As a medical assistant, evaluate if the following response addresses medication history.

Question: "%s"
User Response: "%s"

Determine if the user is describing medications they've taken.
If yes, extract the medications mentioned. If they mention side effects, note those too.
If no medications are mentioned or the response is off-topic, explain why.

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "medications": ["medication1", "medication2"] (if applicable),
    "side_effects": ["side effect1", "side effect2"] (if applicable)
}
`,
	"additional_symptoms": `
As a medical assistant, evaluate if the following response addresses additional symptoms.

Question: "%s"
User Response: "%s"

Determine if the user is describing additional symptoms beyond what they've mentioned before.
If yes, extract those additional symptoms.
If they clearly state they have no additional symptoms, this is also valid.
If the response is off-topic, explain why.

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "has_additional_symptoms": true/false,
    "additional_symptoms": ["symptom1", "symptom2"] (if applicable)
}
`,
	"general": `
As a medical assistant, evaluate if the following response is relevant to the question.

Question: "%s"
User Response: "%s"

Determine if the user's response is addressing the question in a meaningful way.

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "processed_response": "cleaned up version of response" (if applicable)
}
`,
}
